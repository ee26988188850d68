package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MemoryOption configures a memory store.
type MemoryOption func(*memoryStore)

// WithLatency delays every List, Load, and Save by d, simulating a remote
// store. The delay honors context cancellation.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *memoryStore) { m.latency = d }
}

// WithEntries seeds the store with the given key/contents pairs.
func WithEntries(entries map[string]string) MemoryOption {
	return func(m *memoryStore) { maps.Copy(m.docs, entries) }
}

// memoryStore keeps documents in a map guarded by an RWMutex. Contents are
// lost when the process exits.
type memoryStore struct {
	docs    map[string]string
	latency time.Duration
	mu      sync.RWMutex
}

// NewMemoryStore creates a Store with in-memory storage.
func NewMemoryStore(opts ...MemoryOption) Store {
	m := &memoryStore{docs: make(map[string]string)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memoryStore) List(ctx context.Context) ([]string, error) {
	if err := m.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.docs))
	for key := range m.docs {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *memoryStore) Load(ctx context.Context, key string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	contents, exists := m.docs[key]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return contents, nil
}

func (m *memoryStore) Save(ctx context.Context, key, contents string) error {
	if err := m.wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[key] = contents
	return nil
}

func (m *memoryStore) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(m.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
