package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"chatwire/internal/bus"
)

const outboxSize = 16

// Manager owns one websocket connection for the lifetime of a chat view.
// Inbound text frames are published to the bus in arrival order; outbound
// frames go through a buffered outbox drained by a single writer goroutine.
// There is no reconnect: once the connection drops, the session stays closed
// until the view is remounted.
type Manager struct {
	conn   *websocket.Conn
	bus    *bus.Bus
	log    *zap.Logger
	outbox chan string

	ctx    context.Context
	cancel context.CancelFunc

	readerDone chan struct{}
	writerDone chan struct{}

	mu   sync.Mutex
	open bool
}

// Open dials endpoint and starts the reader and writer loops. No handshake
// is sent here; registration is the owning component's job.
func Open(parent context.Context, endpoint string, b *bus.Bus, log *zap.Logger) (*Manager, error) {
	ctx, cancel := context.WithCancel(parent)
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	m := &Manager{
		conn:       conn,
		bus:        b,
		log:        log,
		outbox:     make(chan string, outboxSize),
		ctx:        ctx,
		cancel:     cancel,
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
		open:       true,
	}
	go m.writeLoop()
	go m.readLoop()
	return m, nil
}

// Send enqueues one raw frame for transmission. It never blocks: when the
// session is not open, or the outbox is full, the frame is dropped and the
// drop is reported to the log sink only.
func (m *Manager) Send(frame string) {
	if !m.Connected() {
		m.log.Warn("send dropped: session not open", zap.String("frame", frame))
		return
	}
	select {
	case m.outbox <- frame:
	default:
		m.log.Warn("send dropped: outbox full", zap.String("frame", frame))
	}
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Close tears the connection down and waits for both loops to stop, so no
// frame is published to the bus after Close returns. Safe to call twice.
func (m *Manager) Close() {
	m.markClosed()
	m.cancel()
	_ = m.conn.Close(websocket.StatusNormalClosure, "bye")
	<-m.readerDone
	<-m.writerDone
}

func (m *Manager) markClosed() {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
}

func (m *Manager) readLoop() {
	defer close(m.readerDone)
	for {
		typ, data, err := m.conn.Read(m.ctx)
		if err != nil {
			// Clean closes are expected; anything else is a transport error,
			// reported but never retried.
			switch {
			case m.ctx.Err() != nil:
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				m.log.Info("connection closed by server")
			default:
				m.log.Error("connection lost", zap.Error(err))
			}
			m.markClosed()
			return
		}
		if typ != websocket.MessageText {
			m.log.Warn("dropping non-text frame")
			continue
		}
		m.bus.Publish(string(data))
	}
}

func (m *Manager) writeLoop() {
	defer close(m.writerDone)
	for {
		select {
		case <-m.ctx.Done():
			return
		case frame := <-m.outbox:
			if err := m.conn.Write(m.ctx, websocket.MessageText, []byte(frame)); err != nil {
				if m.ctx.Err() == nil {
					m.log.Error("write failed", zap.Error(err))
				}
				m.markClosed()
				return
			}
		}
	}
}
