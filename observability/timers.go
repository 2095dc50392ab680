// Package observability is the application-level housekeeping layer:
// usage monitoring, adaptive collection, leak detection and structural
// optimization over the room manager's state. Rooms accumulate
// unbounded history the Go runtime's collector cannot reason about
// semantically; this package can.
package observability

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type timerHandle struct {
	name  string
	since time.Time
}

// TimerRegistry is the explicit timer-handle registry: every component
// that schedules a timer or ticker tracks it here instead of the leak
// detector guessing at runtime internals. Outstanding handles are one
// of the two classic leak sources in a per-room-callback architecture
// (the other being subscriptions).
type TimerRegistry struct {
	mu      sync.Mutex
	handles map[uuid.UUID]timerHandle
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{handles: make(map[uuid.UUID]timerHandle)}
}

func (r *TimerRegistry) Track(name string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.handles[id] = timerHandle{name: name, since: time.Now().UTC()}
	return id
}

func (r *TimerRegistry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

func (r *TimerRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ByName groups outstanding handles by their registration name, for
// the admin status view.
func (r *TimerRegistry) ByName() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, h := range r.handles {
		out[h.name]++
	}
	return out
}
