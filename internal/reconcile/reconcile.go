package reconcile

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatwire/internal/avatar"
	"chatwire/pkg/protocol"
)

// UserProfile is one roster entry with its avatar already resolved.
type UserProfile struct {
	Name      string
	AvatarURL string
}

// ChatMessage is one log entry, in arrival order.
type ChatMessage struct {
	From string
	Body string
}

// Reconciler folds the inbound frame stream into the two renderable views:
// the online roster and the message log. It owns both exclusively; observers
// only ever see copies, handed out through Roster and Messages.
//
// Every users envelope is an authoritative full snapshot: the roster is
// replaced wholesale, never merged. The message log is append-only and
// unbounded; bounding it is an explicit non-goal.
type Reconciler struct {
	log *zap.Logger

	mu       sync.RWMutex
	roster   []UserProfile
	messages []ChatMessage
}

func New(log *zap.Logger) *Reconciler {
	return &Reconciler{log: log}
}

// HandleFrame is the bus handler: one state transition per frame. Frames
// that carry no semantic content — blank heartbeats, undecodable payloads,
// envelope kinds that are outbound-only — leave state untouched. A malformed
// server payload must never take the session down.
func (r *Reconciler) HandleFrame(frame string) error {
	if strings.TrimSpace(frame) == "" {
		r.log.Warn("ignoring empty frame")
		return nil
	}

	env, err := protocol.Decode(frame)
	if err != nil {
		r.log.Error("discarding undecodable frame", zap.Error(err), zap.String("raw", frame))
		return nil
	}

	switch env.Kind {
	case protocol.KindUsers:
		r.replaceRoster(env.Names)
	case protocol.KindMessage:
		r.appendMessage(env.From, env.Body)
	case protocol.KindRegister:
		// register is client->server only; tolerate it inbound as a no-op
	}
	return nil
}

func (r *Reconciler) replaceRoster(names []string) {
	next := make([]UserProfile, 0, len(names))
	for _, name := range names {
		next = append(next, UserProfile{Name: name, AvatarURL: avatar.Resolve(name)})
	}
	r.mu.Lock()
	r.roster = next
	r.mu.Unlock()
}

func (r *Reconciler) appendMessage(from, body string) {
	r.mu.Lock()
	r.messages = append(r.messages, ChatMessage{From: from, Body: body})
	r.mu.Unlock()
}

// Roster returns a copy of the current online set, in server order.
func (r *Reconciler) Roster() []UserProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UserProfile, len(r.roster))
	copy(out, r.roster)
	return out
}

// Messages returns a copy of the log, in arrival order.
func (r *Reconciler) Messages() []ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// AvatarFor looks the sender up in the current roster by exact name and
// returns their avatar URL, or "" when the sender is no longer online. This
// is a render-time lookup: a user who left keeps their messages but loses
// the avatar, best effort.
func (r *Reconciler) AvatarFor(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.roster {
		if u.Name == name {
			return u.AvatarURL
		}
	}
	return ""
}
