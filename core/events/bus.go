// Package events provides a publish/subscribe bus for document change events.
// Models publish "<Document>.<action>" events on every write; subscription
// resolvers listen on them.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event represents a published change.
type Event struct {
	// Name is the event name (e.g., "User.created").
	Name string

	// Document is the document that emitted the event.
	Document string

	// Action is the write that triggered the event (created, updated, deleted).
	Action string

	// Data contains the affected record.
	Data map[string]any

	// Time is when the event was published.
	Time time.Time
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event and returns a function that
// removes it. Supports wildcard subscriptions:
//   - "User.created" - exact match
//   - "User.*" - all User events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(event, id) })
	}
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[event]
	for i, s := range subs {
		if s.id == id {
			b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order, exact matches
// first. Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	b.logger.Debug().
		Str("event", event.Name).
		Str("document", event.Document).
		Str("action", event.Action).
		Msg("event emitted")

	for _, handler := range b.matching(event.Name) {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// matching snapshots handlers so they run without holding the lock.
func (b *Bus) matching(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	for _, key := range patterns(name) {
		for _, s := range b.handlers[key] {
			matched = append(matched, s.handler)
		}
	}
	return matched
}

// HasSubscribers checks if any handlers would receive an event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range patterns(event) {
		if len(b.handlers[key]) > 0 {
			return true
		}
	}
	return false
}

// patterns returns the subscription keys an event name matches.
func patterns(name string) []string {
	keys := []string{name}
	if i := strings.IndexByte(name, '.'); i > 0 {
		keys = append(keys, name[:i]+".*")
	}
	if name != "*" {
		keys = append(keys, "*")
	}
	return keys
}
