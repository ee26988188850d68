package observability

import (
	"context"
	"slices"
	"sync"
)

// Recorder keeps every event it receives. Tests use it to assert on the
// sequence of lifecycle transitions.
type Recorder struct {
	events []Event
	mu     sync.Mutex
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnEvent(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
