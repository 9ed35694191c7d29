package session

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is how many events a slow subscriber can fall behind
// before newer events are dropped for that subscriber. The NDJSON log is
// the authoritative record; the bus is best-effort live delivery.
const subscriberBuffer = 256

// EventBus fans one session's event stream out to live subscribers
// (dashboard SSE connections). Single writer — the polish controller —
// and any number of readers. Created at session start and closed when the
// session ends; never shared between sessions.
type EventBus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: map[int]chan Event{}}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called when the subscriber goes away; it is safe to call after Close.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber. A subscriber whose buffer
// is full loses the event rather than stalling the controller.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("event bus subscriber lagging, dropping event", "subscriber", id, "type", ev.Type)
		}
	}
}

// Close tears the bus down, closing all subscriber channels. Publish and
// Subscribe become no-ops afterwards.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
