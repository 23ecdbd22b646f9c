package client

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatwire/internal/bus"
	"chatwire/internal/reconcile"
	"chatwire/internal/session"
	"chatwire/pkg/protocol"
)

// Client is the chat-session composition root: it owns the session manager,
// wires the reconciler to the bus, performs the registration handshake, and
// exposes the renderable views plus a coalesced change signal. One Client
// per mounted chat view; a Client is never reused after Close.
type Client struct {
	username string
	log      *zap.Logger

	bus     *bus.Bus
	state   *reconcile.Reconciler
	session *session.Manager

	stateSub  *bus.Subscription
	notifySub *bus.Subscription
	updates   chan struct{}

	closeOnce sync.Once
}

// Open connects to endpoint and registers username. The register envelope is
// the only structured frame this client ever sends; composed messages go out
// as bare text (see Submit).
func Open(ctx context.Context, endpoint, username string, log *zap.Logger) (*Client, error) {
	b := bus.New(log)
	c := &Client{
		username: username,
		log:      log,
		bus:      b,
		state:    reconcile.New(log),
		updates:  make(chan struct{}, 1),
	}

	// Subscribe order matters: the reconciler applies the frame first, the
	// notifier fires after, so observers always read post-transition state.
	c.stateSub = b.Subscribe(c.state.HandleFrame)
	c.notifySub = b.Subscribe(c.notify)

	mgr, err := session.Open(ctx, endpoint, b, log)
	if err != nil {
		return nil, err
	}
	c.session = mgr

	mgr.Send(protocol.Encode(protocol.Envelope{Kind: protocol.KindRegister, Name: username}))
	return c, nil
}

func (c *Client) notify(string) error {
	select {
	case c.updates <- struct{}{}:
	default:
	}
	return nil
}

// Submit sends the composed text as a bare, unenveloped frame — the server
// wraps it into a message envelope under this user's name, and our own log
// only grows once that envelope comes back. Blank input is not sent; every
// peer's reconciler would discard it anyway.
func (c *Client) Submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.session.Send(text)
}

func (c *Client) Username() string { return c.username }

func (c *Client) Connected() bool { return c.session.Connected() }

func (c *Client) Roster() []reconcile.UserProfile { return c.state.Roster() }

func (c *Client) Messages() []reconcile.ChatMessage { return c.state.Messages() }

func (c *Client) AvatarFor(name string) string { return c.state.AvatarFor(name) }

// Updates signals after each applied frame. The channel is coalescing
// (capacity 1) and never blocks frame processing; consumers re-read the
// views on each tick.
func (c *Client) Updates() <-chan struct{} { return c.updates }

// Close cancels the subscriptions before closing the socket, so no handler
// can fire into torn-down state afterward.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.stateSub.Cancel()
		c.notifySub.Cancel()
		c.session.Close()
	})
}
