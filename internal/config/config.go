package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from CHATWIRE_* environment variables, with an optional
// .env file loaded first. The websocket endpoint and username come from the
// surrounding application; defaults target the local development server.
type Config struct {
	ServerURL  string `envconfig:"SERVER_URL" default:"ws://127.0.0.1:8080/ws"`
	Username   string `envconfig:"USERNAME"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("chatwire", &c); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return c, nil
}
