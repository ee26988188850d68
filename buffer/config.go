package buffer

import (
	"time"

	"github.com/tailored-agentic-units/autosave/core/config"
)

// DefaultDebounceInterval is the quiescence period between the first
// unsaved mutation and the autosave it schedules.
const DefaultDebounceInterval = 5 * time.Second

// Config holds document buffer parameters.
type Config struct {
	DebounceInterval config.Duration `json:"debounce_interval,omitempty"`
}

// DefaultConfig returns the default buffer configuration.
func DefaultConfig() Config {
	return Config{DebounceInterval: config.Duration(DefaultDebounceInterval)}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.DebounceInterval > 0 {
		c.DebounceInterval = source.DebounceInterval
	}
}
