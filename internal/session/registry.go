package session

import "sync"

// BusRegistry maps running session IDs to their live event buses so the
// dashboard server can attach SSE subscribers to sessions polished in the
// same process. Sessions that have already finished are not registered;
// their history lives in the NDJSON log.
type BusRegistry struct {
	mu    sync.RWMutex
	buses map[string]*EventBus
}

// NewBusRegistry creates an empty registry.
func NewBusRegistry() *BusRegistry {
	return &BusRegistry{buses: map[string]*EventBus{}}
}

// Register associates a live bus with a session ID. The returned function
// removes the association; call it when the session ends.
func (r *BusRegistry) Register(id string, bus *EventBus) func() {
	r.mu.Lock()
	r.buses[id] = bus
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.buses[id] == bus {
			delete(r.buses, id)
		}
	}
}

// Lookup returns the live bus for a session, if one is registered.
func (r *BusRegistry) Lookup(id string) (*EventBus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bus, ok := r.buses[id]
	return bus, ok
}
