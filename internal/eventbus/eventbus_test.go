package eventbus

import (
	"context"
	"testing"
)

type testEvent struct{ n int }

func TestSubscribePublish(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got []int
	unsub := Subscribe(func(ctx context.Context, e testEvent) {
		got = append(got, e.n)
	})

	Publish(context.Background(), testEvent{1})
	Publish(context.Background(), testEvent{2})
	unsub()
	Publish(context.Background(), testEvent{3})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected events [1 2], got %v", got)
	}
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	// Must not panic.
	Publish(context.Background(), testEvent{1})
	if unsub := Subscribe(func(ctx context.Context, e testEvent) {}); unsub == nil {
		t.Fatal("expected a no-op unsubscribe")
	}
}
