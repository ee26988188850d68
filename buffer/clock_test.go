package buffer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/autosave/buffer"
)

// manualClock records scheduled callbacks and runs them only when Fire is
// called.
type manualClock struct {
	timers []*manualTimer
	mu     sync.Mutex
}

type manualTimer struct {
	clock   *manualClock
	d       time.Duration
	f       func()
	done    bool
	stopped bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) buffer.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.stopped = true
	return true
}

// Fire runs every pending callback and returns how many ran.
func (c *manualClock) Fire() int {
	c.mu.Lock()
	var due []func()
	for _, t := range c.timers {
		if !t.done {
			t.done = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
	return len(due)
}

// Pending returns how many callbacks are scheduled and not yet run.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Scheduled returns the durations of every callback ever scheduled.
func (c *manualClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		ds[i] = t.d
	}
	return ds
}

// Stopped returns how many callbacks were cancelled before running.
func (c *manualClock) Stopped() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if t.stopped {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
