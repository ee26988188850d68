package directory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/autosave/buffer"
	"github.com/tailored-agentic-units/autosave/store"
)

const defaultObserver = "slog"

// Config holds initialization parameters for a directory and the buffers
// and store it owns.
type Config struct {
	Store    store.Config  `json:"store"`
	Buffer   buffer.Config `json:"buffer"`
	Observer string        `json:"observer,omitempty"` // Registered observer name.
}

// DefaultConfig returns a Config with defaults for every subsystem.
func DefaultConfig() Config {
	return Config{
		Store:    store.DefaultConfig(),
		Buffer:   buffer.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Store.Merge(&source.Store)
	c.Buffer.Merge(&source.Buffer)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
