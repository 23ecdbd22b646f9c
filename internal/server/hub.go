package server

import (
	"context"

	"go.uber.org/zap"

	"chatwire/pkg/protocol"
)

type Msg interface{ isHubMsg() }

// Join registers a connection. Outbox receives every broadcast frame.
type Join struct {
	ID     string
	Outbox chan string
}

// SetName records the display name a connection registered with; the new
// roster snapshot is broadcast to everyone.
type SetName struct {
	ID   string
	Name string
}

// FromClient is one bare text frame composed by a connected user.
type FromClient struct {
	ID   string
	Text string
}

type Leave struct{ ID string }

type Shutdown struct{}

// GetState is test-only: reflect internal state without data races.
type GetState struct{ Reply chan View }

type View struct {
	Names      []string
	NumMembers int
}

func (Join) isHubMsg()       {}
func (SetName) isHubMsg()    {}
func (FromClient) isHubMsg() {}
func (Leave) isHubMsg()      {}
func (Shutdown) isHubMsg()   {}
func (GetState) isHubMsg()   {}

type member struct {
	name   string
	outbox chan string
}

// Hub is the single actor owning the connected-member set. Registration and
// disconnect both broadcast the full roster snapshot — the client treats
// every users envelope as authoritative, so the hub never sends diffs. A
// bare text frame from a registered member is wrapped into a message
// envelope and broadcast to everyone, sender included.
type Hub struct {
	inbox   chan Msg
	members map[string]*member
	order   []string // join order drives roster order
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		members: make(map[string]*member),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.members[msg.ID] = &member{outbox: msg.Outbox}
				h.order = append(h.order, msg.ID)

			case SetName:
				if mem := h.members[msg.ID]; mem != nil {
					mem.name = msg.Name
					h.broadcastRoster()
				}

			case FromClient:
				mem := h.members[msg.ID]
				if mem == nil || mem.name == "" {
					h.log.Warn("dropping frame from unregistered connection", zap.String("conn", msg.ID))
					break
				}
				h.broadcast(protocol.Encode(protocol.Envelope{
					Kind: protocol.KindMessage,
					From: mem.name,
					Body: msg.Text,
				}))

			case Leave:
				if mem, ok := h.members[msg.ID]; ok {
					close(mem.outbox)
					h.remove(msg.ID)
					h.broadcastRoster()
				}

			case GetState:
				msg.Reply <- View{Names: h.roster(), NumMembers: len(h.members)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) roster() []string {
	names := make([]string, 0, len(h.order))
	for _, id := range h.order {
		if mem := h.members[id]; mem != nil && mem.name != "" {
			names = append(names, mem.name)
		}
	}
	return names
}

func (h *Hub) broadcastRoster() {
	h.broadcast(protocol.Encode(protocol.Envelope{Kind: protocol.KindUsers, Names: h.roster()}))
}

func (h *Hub) broadcast(frame string) {
	for id, mem := range h.members {
		select {
		case mem.outbox <- frame:
		default:
			// Member is slow/full - drop them.
			close(mem.outbox)
			h.remove(id)
		}
	}
}

func (h *Hub) remove(id string) {
	delete(h.members, id)
	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Hub) shutdown() {
	for id, mem := range h.members {
		close(mem.outbox)
		delete(h.members, id)
	}
	h.order = nil
	h.cancel()
}
