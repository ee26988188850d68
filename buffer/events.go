package buffer

import "github.com/tailored-agentic-units/autosave/observability"

// Buffer event types.
const (
	EventLoadStart    observability.EventType = "buffer.load.start"
	EventLoadComplete observability.EventType = "buffer.load.complete"
	EventLoadError    observability.EventType = "buffer.load.error"
	EventSchedule     observability.EventType = "buffer.schedule"
	EventSaveStart    observability.EventType = "buffer.save.start"
	EventSaveComplete observability.EventType = "buffer.save.complete"
	EventSaveError    observability.EventType = "buffer.save.error"
	EventSaveSkip     observability.EventType = "buffer.save.skip"
	EventClose        observability.EventType = "buffer.close"
)
