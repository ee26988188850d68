package buffer

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a buffer's counters.
type MetricsSnapshot struct {
	Mutations    int64
	TimersArmed  int64
	SavesStarted int64
	SavesOK      int64
	SavesFailed  int64
	SavesSkipped int64
}

// Metrics counts buffer activity. Safe for concurrent use.
type Metrics struct {
	mutations    atomic.Int64
	timersArmed  atomic.Int64
	savesStarted atomic.Int64
	savesOK      atomic.Int64
	savesFailed  atomic.Int64
	savesSkipped atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordMutation() {
	m.mutations.Add(1)
}

func (m *Metrics) RecordTimerArmed() {
	m.timersArmed.Add(1)
}

func (m *Metrics) RecordSaveStarted() {
	m.savesStarted.Add(1)
}

func (m *Metrics) RecordSaveOK() {
	m.savesOK.Add(1)
}

func (m *Metrics) RecordSaveFailed() {
	m.savesFailed.Add(1)
}

func (m *Metrics) RecordSaveSkipped() {
	m.savesSkipped.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Mutations:    m.mutations.Load(),
		TimersArmed:  m.timersArmed.Load(),
		SavesStarted: m.savesStarted.Load(),
		SavesOK:      m.savesOK.Load(),
		SavesFailed:  m.savesFailed.Load(),
		SavesSkipped: m.savesSkipped.Load(),
	}
}
