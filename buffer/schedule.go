package buffer

import "github.com/tailored-agentic-units/autosave/observability"

// State is the debounce scheduler state of a buffer.
type State int

const (
	// StateIdle means no autosave is scheduled or running.
	StateIdle State = iota
	// StatePending means a debounce timer is armed.
	StatePending
	// StateSaving means the timer fired and its save is running.
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// State returns the current scheduler state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// armLocked starts a debounce timer if the scheduler is idle. Mutations
// arriving while a timer is pending or its save is running do not reset or
// add a timer; the burst is timed from its first mutation.
func (b *Buffer) armLocked() bool {
	if b.state != StateIdle || b.closed || b.ctx.Err() != nil {
		return false
	}
	b.state = StatePending
	b.timer = b.clock.AfterFunc(b.interval, b.fire)
	b.metrics.RecordTimerArmed()
	return true
}

func (b *Buffer) disarmLocked() {
	if b.state != StatePending {
		return
	}
	b.timer.Stop()
	b.timer = nil
	b.state = StateIdle
}

// fire runs the scheduled save. If the buffer is dirty again afterwards,
// because a mutation raced the save or the store failed, a fresh timer is
// armed so the change is retried on the next cycle.
func (b *Buffer) fire() {
	b.mu.Lock()
	if b.state != StatePending {
		b.mu.Unlock()
		return
	}
	b.state = StateSaving
	b.timer = nil
	b.mu.Unlock()

	err := b.save(b.ctx, "buffer.autosave")

	b.mu.Lock()
	b.state = StateIdle
	rearmed := false
	if b.dirty {
		rearmed = b.armLocked()
	}
	b.mu.Unlock()

	if rearmed {
		b.emitSchedule(err != nil)
	}
}

func (b *Buffer) emitSchedule(retry bool) {
	b.emit(b.ctx, EventSchedule, observability.LevelVerbose, "buffer.schedule", map[string]any{
		"interval": b.interval.String(),
		"retry":    retry,
	})
}
