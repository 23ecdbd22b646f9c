package server

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"chatwire/pkg/protocol"
)

// helper: receive one frame with a timeout so tests never hang
func recvHubFrame(t *testing.T, ch <-chan string, within time.Duration) string {
	t.Helper()
	select {
	case frame, ok := <-ch:
		if !ok {
			t.Fatalf("member outbox closed unexpectedly")
		}
		return frame
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return "" // unreachable
	}
}

func recvNoFrame(t *testing.T, ch <-chan string, within time.Duration) {
	t.Helper()
	select {
	case frame, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no frame within %v, but got: %q", within, frame)
	case <-time.After(within):
	}
}

func recvHubView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func decodeFrame(t *testing.T, frame string) protocol.Envelope {
	t.Helper()
	env, err := protocol.Decode(frame)
	if err != nil {
		t.Fatalf("hub broadcast an undecodable frame %q: %v", frame, err)
	}
	return env
}

func TestHub_RegisterBroadcastsRosterSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, zaptest.NewLogger(t))

	out1 := make(chan string, 4)
	h.Inbox() <- Join{ID: "c1", Outbox: out1}
	h.Inbox() <- SetName{ID: "c1", Name: "alice"}

	env := decodeFrame(t, recvHubFrame(t, out1, time.Second))
	if env.Kind != protocol.KindUsers || len(env.Names) != 1 || env.Names[0] != "alice" {
		t.Fatalf("unexpected roster broadcast: %+v", env)
	}

	out2 := make(chan string, 4)
	h.Inbox() <- Join{ID: "c2", Outbox: out2}
	h.Inbox() <- SetName{ID: "c2", Name: "bob"}

	// Both members see the two-name snapshot, join order preserved.
	for _, out := range []chan string{out1, out2} {
		env := decodeFrame(t, recvHubFrame(t, out, time.Second))
		if len(env.Names) != 2 || env.Names[0] != "alice" || env.Names[1] != "bob" {
			t.Fatalf("unexpected roster broadcast: %+v", env)
		}
	}
}

func TestHub_BareTextIsWrappedIntoMessageEnvelope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, zaptest.NewLogger(t))

	out := make(chan string, 4)
	h.Inbox() <- Join{ID: "c1", Outbox: out}
	h.Inbox() <- SetName{ID: "c1", Name: "alice"}
	_ = recvHubFrame(t, out, time.Second) // drain roster broadcast

	h.Inbox() <- FromClient{ID: "c1", Text: "hello everyone"}

	env := decodeFrame(t, recvHubFrame(t, out, time.Second))
	if env.Kind != protocol.KindMessage || env.From != "alice" || env.Body != "hello everyone" {
		t.Fatalf("unexpected message broadcast: %+v", env)
	}
}

func TestHub_UnregisteredFrameIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, zaptest.NewLogger(t))

	out := make(chan string, 4)
	h.Inbox() <- Join{ID: "c1", Outbox: out}
	h.Inbox() <- FromClient{ID: "c1", Text: "anonymous shout"}

	recvNoFrame(t, out, 100*time.Millisecond)
}

func TestHub_LeaveBroadcastsShrunkenRoster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, zaptest.NewLogger(t))

	out1 := make(chan string, 8)
	out2 := make(chan string, 8)
	h.Inbox() <- Join{ID: "c1", Outbox: out1}
	h.Inbox() <- SetName{ID: "c1", Name: "alice"}
	h.Inbox() <- Join{ID: "c2", Outbox: out2}
	h.Inbox() <- SetName{ID: "c2", Name: "bob"}

	_ = recvHubFrame(t, out1, time.Second) // [alice]
	_ = recvHubFrame(t, out1, time.Second) // [alice bob]
	_ = recvHubFrame(t, out2, time.Second) // [alice bob]

	h.Inbox() <- Leave{ID: "c2"}

	env := decodeFrame(t, recvHubFrame(t, out1, time.Second))
	if env.Kind != protocol.KindUsers || len(env.Names) != 1 || env.Names[0] != "alice" {
		t.Fatalf("unexpected roster after leave: %+v", env)
	}
}

func TestHub_SlowMemberIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, zaptest.NewLogger(t))

	// Zero-capacity outbox: the very first broadcast overflows it.
	out := make(chan string)
	h.Inbox() <- Join{ID: "c1", Outbox: out}
	h.Inbox() <- SetName{ID: "c1", Name: "alice"}

	reply := make(chan View, 1)
	h.Inbox() <- GetState{Reply: reply}
	view := recvHubView(t, reply, time.Second)

	if view.NumMembers != 0 {
		t.Fatalf("expected slow member to be dropped; NumMembers=%d", view.NumMembers)
	}
}
