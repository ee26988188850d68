package buffer

import "time"

// Timer is a scheduled callback that can be stopped before it runs.
type Timer interface {
	Stop() bool
}

// Clock schedules the debounce callback. The default uses time.AfterFunc;
// tests substitute a clock they can fire by hand.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
