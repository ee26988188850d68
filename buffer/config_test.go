package buffer_test

import (
	"testing"
	"time"

	"github.com/tailored-agentic-units/autosave/buffer"
	"github.com/tailored-agentic-units/autosave/core/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := buffer.DefaultConfig()

	if cfg.DebounceInterval.Std() != buffer.DefaultDebounceInterval {
		t.Errorf("got DebounceInterval %v, want %v", cfg.DebounceInterval, buffer.DefaultDebounceInterval)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := buffer.DefaultConfig()
	cfg.Merge(&buffer.Config{DebounceInterval: config.Duration(time.Second)})

	if cfg.DebounceInterval.Std() != time.Second {
		t.Errorf("got DebounceInterval %v, want %v", cfg.DebounceInterval, time.Second)
	}
}

func TestConfig_Merge_ZeroPreservesDefault(t *testing.T) {
	cfg := buffer.DefaultConfig()
	cfg.Merge(&buffer.Config{})

	if cfg.DebounceInterval.Std() != buffer.DefaultDebounceInterval {
		t.Errorf("got DebounceInterval %v, want %v (preserved)", cfg.DebounceInterval, buffer.DefaultDebounceInterval)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state buffer.State
		want  string
	}{
		{buffer.StateIdle, "idle"},
		{buffer.StatePending, "pending"},
		{buffer.StateSaving, "saving"},
		{buffer.State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
