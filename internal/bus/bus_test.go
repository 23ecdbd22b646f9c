package bus

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestBus_DeliversInSubscribeOrder(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var got []string
	b.Subscribe(func(frame string) error {
		got = append(got, "first:"+frame)
		return nil
	})
	b.Subscribe(func(frame string) error {
		got = append(got, "second:"+frame)
		return nil
	})

	b.Publish("a")
	b.Publish("b")

	want := []string{"first:a", "second:a", "first:b", "second:b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery order mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}

func TestBus_CanceledSubscriptionNotInvoked(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	calls := 0
	sub := b.Subscribe(func(string) error {
		calls++
		return nil
	})

	b.Publish("before")
	sub.Cancel()
	b.Publish("after")

	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}

func TestBus_ErroringSubscriberIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	b := New(zap.New(core))

	b.Subscribe(func(string) error {
		return errors.New("boom")
	})
	delivered := false
	b.Subscribe(func(string) error {
		delivered = true
		return nil
	})

	b.Publish("frame")

	if !delivered {
		t.Fatalf("second subscriber starved by erroring first subscriber")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 error log entry, got %d", logs.Len())
	}
}

func TestBus_CancelTwiceIsSafe(t *testing.T) {
	b := New(zaptest.NewLogger(t))
	sub := b.Subscribe(func(string) error { return nil })
	sub.Cancel()
	sub.Cancel()
	b.Publish("frame")
}
