package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewBus(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	if bus == nil {
		t.Fatal("NewBus returned nil")
	}
	if len(bus.handlers) != 0 {
		t.Error("handlers map should be empty on creation")
	}
}

func TestPublish_ExactMatch(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got Event
	bus.Subscribe("User.created", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	bus.Publish(context.Background(), Event{
		Name:     "User.created",
		Document: "User",
		Action:   "created",
		Data:     map[string]any{"_id": "1"},
	})

	if got.Name != "User.created" {
		t.Fatalf("handler not called, got %+v", got)
	}
	if got.Data["_id"] != "1" {
		t.Errorf("Data = %v", got.Data)
	}
	if got.Time.IsZero() {
		t.Error("Publish should stamp the event time")
	}
}

func TestPublish_Wildcards(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		order = append(order, "all")
		return nil
	})
	bus.Subscribe("User.*", func(ctx context.Context, e Event) error {
		order = append(order, "document")
		return nil
	})
	bus.Subscribe("User.updated", func(ctx context.Context, e Event) error {
		order = append(order, "exact")
		return nil
	})
	bus.Subscribe("Post.*", func(ctx context.Context, e Event) error {
		order = append(order, "other")
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "User.updated"})

	want := []string{"exact", "document", "all"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestPublish_ContinuesAfterHandlerError(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int32
	bus.Subscribe("x.y", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	bus.Subscribe("x.y", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "x.y"})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int
	unsubscribe := bus.Subscribe("User.created", func(ctx context.Context, e Event) error {
		calls++
		return nil
	})
	keep := bus.Subscribe("User.created", func(ctx context.Context, e Event) error {
		return nil
	})
	defer keep()

	bus.Publish(context.Background(), Event{Name: "User.created"})
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), Event{Name: "User.created"})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(bus.handlers["User.created"]) != 1 {
		t.Errorf("handlers = %d, want 1", len(bus.handlers["User.created"]))
	}
}

func TestUnsubscribe_FromHandler(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var unsubscribe func()
	unsubscribe = bus.Subscribe("a.b", func(ctx context.Context, e Event) error {
		unsubscribe()
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "a.b"})

	if bus.HasSubscribers("a.b") {
		t.Error("handler should have removed itself")
	}
}

func TestHasSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	if bus.HasSubscribers("User.created") {
		t.Error("empty bus should have no subscribers")
	}

	unsubscribe := bus.Subscribe("User.*", func(ctx context.Context, e Event) error { return nil })
	if !bus.HasSubscribers("User.created") {
		t.Error("wildcard subscriber should match")
	}
	if bus.HasSubscribers("Post.created") {
		t.Error("other document should not match")
	}

	unsubscribe()
	if bus.HasSubscribers("User.created") {
		t.Error("unsubscribed handler should not match")
	}
}

func TestPublish_Concurrent(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var count int64
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Name: "User.created"})
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}
