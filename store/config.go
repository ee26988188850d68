package store

import (
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/autosave/core/config"
)

// Built-in backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRemote = "remote"
)

// Config holds store initialization parameters.
type Config struct {
	Backend string          `json:"backend,omitempty"` // Registered backend name.
	Path    string          `json:"path,omitempty"`    // FileStore root directory.
	URL     string          `json:"url,omitempty"`     // Base URL of a remote store service.
	Latency config.Duration `json:"latency,omitempty"` // Artificial delay for the memory backend.
}

// DefaultConfig returns the default store configuration (in-memory).
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.Latency > 0 {
		c.Latency = source.Latency
	}
}

// Factory builds a Store from configuration.
type Factory func(cfg *Config) (Store, error)

var (
	backends = map[string]Factory{
		BackendMemory: func(cfg *Config) (Store, error) {
			return NewMemoryStore(WithLatency(cfg.Latency.Std())), nil
		},
		BackendFile: func(cfg *Config) (Store, error) {
			if cfg.Path == "" {
				return nil, fmt.Errorf("file backend requires a path")
			}
			return NewFileStore(cfg.Path), nil
		},
	}
	mutex sync.RWMutex
)

// RegisterBackend adds or replaces a named backend in the global registry.
// The remote package registers BackendRemote when imported.
func RegisterBackend(name string, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	backends[name] = factory
}

// NewStore creates a Store from configuration using the registered backend
// named by cfg.Backend. An empty backend selects BackendMemory.
func NewStore(cfg *Config) (Store, error) {
	name := cfg.Backend
	if name == "" {
		name = BackendMemory
	}

	mutex.RLock()
	factory, exists := backends[name]
	mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return factory(cfg)
}
