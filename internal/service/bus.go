package service

import (
	"context"
	"sync"
)

// Event is a layer lifecycle notification.
type Event struct {
	Resource string `json:"resource"` // "layers"
	Action   string `json:"action"`   // "loaded", "failed", "shown", "hidden", "restyled"
	ID       string `json:"id"`       // layer name
}

// EventBus fans events out to subscribers. Publishing never blocks; a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an event bus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber with room in its buffer.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel of events. Release it with
// Unsubscribe.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// SubscribeContext is Subscribe with Unsubscribe run when ctx is done.
func (b *EventBus) SubscribeContext(ctx context.Context) <-chan Event {
	ch := b.Subscribe()
	context.AfterFunc(ctx, func() { b.Unsubscribe(ch) })
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
