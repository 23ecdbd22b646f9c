package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler consumes one published frame. A non-nil error is reported to the
// bus logger and never stops delivery to the remaining subscribers.
type Handler func(frame string) error

// Bus relays the single inbound frame stream to any number of subscribers.
// Delivery is synchronous and in subscribe order, on the goroutine that
// called Publish; handlers must not block.
type Bus struct {
	log *zap.Logger

	mu   sync.Mutex
	subs []*Subscription
}

// Subscription is the handle returned by Subscribe. Cancel detaches the
// handler; it is never invoked for frames published afterward.
type Subscription struct {
	bus      *Bus
	handler  Handler
	canceled atomic.Bool
}

func New(log *zap.Logger) *Bus {
	return &Bus{log: log}
}

func (b *Bus) Subscribe(h Handler) *Subscription {
	s := &Subscription{bus: b, handler: h}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

func (s *Subscription) Cancel() {
	s.canceled.Store(true)
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers frame to every current subscriber. A failing subscriber
// is isolated: the error goes to the log sink and delivery continues.
func (b *Bus) Publish(frame string) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if s.canceled.Load() {
			continue
		}
		if err := s.handler(frame); err != nil {
			b.log.Error("bus subscriber failed", zap.Error(err))
		}
	}
}
