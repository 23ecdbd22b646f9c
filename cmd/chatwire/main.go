package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"chatwire/internal/client"
	"chatwire/internal/config"
	"chatwire/internal/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Username == "" {
		logger.Fatal("CHATWIRE_USERNAME must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := client.Open(ctx, cfg.ServerURL, cfg.Username, logger)
	if err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	defer c.Close()

	fmt.Printf("connected to %s as %s\n", cfg.ServerURL, c.Username())

	// stdin submit loop; EOF or interrupt ends the session
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			c.Submit(sc.Text())
		}
		stop()
	}()

	var rendered int
	var lastRoster string
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Updates():
			if online := rosterLine(c.Roster()); online != lastRoster {
				fmt.Printf("online: %s\n", online)
				lastRoster = online
			}
			msgs := c.Messages()
			for _, m := range msgs[rendered:] {
				fmt.Printf("%s: %s\n", m.From, m.Body)
			}
			rendered = len(msgs)
		}
	}
}

func rosterLine(roster []reconcile.UserProfile) string {
	names := make([]string, 0, len(roster))
	for _, u := range roster {
		names = append(names, u.Name)
	}
	return strings.Join(names, ", ")
}
