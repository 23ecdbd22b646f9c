package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatwire/pkg/protocol"
)

// Handler upgrades the connection and runs the per-connection read loop.
// A register envelope names the connection; any other non-blank text frame
// is treated as composed message text, which is exactly what the browser
// client sends on submit.
func Handler(h *Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Development server: accept any origin. Lock this down before
			// exposing it anywhere.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan string, 8)
		id := uuid.NewString()

		h.Inbox() <- Join{ID: id, Outbox: out}
		defer func() { h.Inbox() <- Leave{ID: id} }()

		// Writer goroutine: drains the hub outbox until the hub closes it.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				if err := conn.Write(writeCtx, websocket.MessageText, []byte(frame)); err != nil {
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("connection read ended", zap.String("conn", id), zap.Error(err))
				return
			}

			frame := string(data)
			if strings.TrimSpace(frame) == "" {
				continue
			}
			if env, err := protocol.Decode(frame); err == nil && env.Kind == protocol.KindRegister {
				h.Inbox() <- SetName{ID: id, Name: env.Name}
				continue
			}
			h.Inbox() <- FromClient{ID: id, Text: frame}
		}
	}
}
