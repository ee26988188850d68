package directory

import "github.com/tailored-agentic-units/autosave/observability"

// Directory event types.
const (
	EventSelect      observability.EventType = "directory.select"
	EventRetire      observability.EventType = "directory.retire"
	EventRetireError observability.EventType = "directory.retire.error"
	EventClose       observability.EventType = "directory.close"
)
