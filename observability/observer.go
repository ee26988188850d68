// Package observability carries buffer and directory lifecycle events to
// logs or test recorders. Level values follow OpenTelemetry SeverityNumber
// ranges so events translate to OTel log records without remapping.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps l to the slog.Level used when the event is logged.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event, dot-separated by subsystem
// ("buffer.save.complete", "directory.select").
type EventType string

// Event describes one step in a buffer or directory lifecycle. Source is
// the emitting operation, Data holds flat attributes such as key and
// buffer_id.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events. OnEvent may be called from timer goroutines and
// must be safe for concurrent use.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
