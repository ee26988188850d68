// Package buffer holds one document's in-memory contents and keeps the
// backing store eventually consistent with them.
//
// A Buffer loads its document asynchronously on construction. Mutations mark
// it dirty and arm a single debounce timer; when the timer fires the buffer
// saves whatever it holds at that instant. Flush saves immediately and
// cooperates with any save already running, so a document is never written
// by two concurrent store calls and a mutation that races a save is never
// reported as clean.
//
//	b := buffer.New(ctx, s, "notes", &cfg)
//	if err := b.Wait(ctx); err != nil { ... }
//	b.SetContents("Hello, updated.")
//	err := b.Close(ctx) // final flush
package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/autosave/observability"
	"github.com/tailored-agentic-units/autosave/store"
)

// Option configures a Buffer before its load starts.
type Option func(*Buffer)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(b *Buffer) { b.observer = o }
}

// WithClock overrides the timer source used for debounce scheduling.
func WithClock(c Clock) Option {
	return func(b *Buffer) { b.clock = c }
}

// WithID overrides the generated buffer instance ID.
func WithID(id string) Option {
	return func(b *Buffer) { b.id = id }
}

// Buffer is the editable, autosaving view of one stored document. All
// methods are safe for concurrent use.
type Buffer struct {
	id       string
	key      string
	store    store.Store
	observer observability.Observer
	clock    Clock
	interval time.Duration
	metrics  *Metrics

	ctx   context.Context
	ready chan struct{}
	slot  chan struct{}

	mu       sync.Mutex
	contents string
	loading  bool
	dirty    bool
	created  bool
	closed   bool
	loadErr  error
	state    State
	timer    Timer
}

// New creates a Buffer for key and starts loading it from s. The buffer
// reports Loading until the load resolves. ctx bounds the load and every
// timer-driven save; cancelling it stops autosave retries.
func New(ctx context.Context, s store.Store, key string, cfg *Config, opts ...Option) *Buffer {
	interval := cfg.DebounceInterval.Std()
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}

	b := &Buffer{
		id:       uuid.Must(uuid.NewV7()).String(),
		key:      key,
		store:    s,
		observer: observability.NoOpObserver{},
		clock:    systemClock{},
		interval: interval,
		metrics:  NewMetrics(),
		ctx:      ctx,
		ready:    make(chan struct{}),
		slot:     make(chan struct{}, 1),
		loading:  true,
		state:    StateIdle,
	}

	for _, opt := range opts {
		opt(b)
	}

	go b.load()

	return b
}

func (b *Buffer) load() {
	b.emit(b.ctx, EventLoadStart, observability.LevelVerbose, "buffer.load", nil)

	contents, err := b.store.Load(b.ctx, b.key)

	b.mu.Lock()
	switch {
	case err == nil:
		b.contents = contents
	case errors.Is(err, store.ErrKeyNotFound):
		b.created = true
	case errors.Is(err, store.ErrLoadFailed):
		b.loadErr = fmt.Errorf("load %s: %w", b.key, err)
	default:
		b.loadErr = fmt.Errorf("load %s: %w: %w", b.key, store.ErrLoadFailed, err)
	}
	b.loading = false
	loadErr, created := b.loadErr, b.created
	b.mu.Unlock()

	defer close(b.ready)

	if loadErr != nil {
		b.emit(b.ctx, EventLoadError, observability.LevelError, "buffer.load", map[string]any{
			"error": loadErr.Error(),
		})
		return
	}
	b.emit(b.ctx, EventLoadComplete, observability.LevelInfo, "buffer.load", map[string]any{
		"created": created,
		"bytes":   len(contents),
	})
}

// ID returns the buffer instance identifier.
func (b *Buffer) ID() string {
	return b.id
}

// Key returns the store key this buffer edits.
func (b *Buffer) Key() string {
	return b.key
}

// Ready is closed once the initial load has resolved.
func (b *Buffer) Ready() <-chan struct{} {
	return b.ready
}

// Wait blocks until the initial load resolves and returns its error, if
// any. A missing key is not an error: the buffer starts as an empty new
// document and Created reports true.
func (b *Buffer) Wait(ctx context.Context) error {
	select {
	case <-b.ready:
		return b.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loading reports whether the initial load is still in progress.
func (b *Buffer) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Dirty reports whether the buffer holds contents not yet in the store.
func (b *Buffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// Created reports whether the key was absent from the store at load time.
func (b *Buffer) Created() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

// Err returns the load error. It wraps store.ErrLoadFailed when set.
func (b *Buffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Metrics returns a snapshot of the buffer's counters.
func (b *Buffer) Metrics() MetricsSnapshot {
	return b.metrics.Snapshot()
}

// Contents returns the current in-memory contents.
func (b *Buffer) Contents() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loading {
		return "", ErrLoading
	}
	if b.loadErr != nil {
		return "", b.loadErr
	}
	return b.contents, nil
}

// SetContents replaces the contents, marks the buffer dirty, and arms the
// debounce timer unless one is already pending or a save is running. It
// never performs I/O.
func (b *Buffer) SetContents(contents string) error {
	b.mu.Lock()
	switch {
	case b.loading:
		b.mu.Unlock()
		return ErrLoading
	case b.loadErr != nil:
		b.mu.Unlock()
		return b.loadErr
	case b.closed:
		b.mu.Unlock()
		return ErrClosed
	}

	b.contents = contents
	b.dirty = true
	b.metrics.RecordMutation()
	armed := b.armLocked()
	b.mu.Unlock()

	if armed {
		b.emitSchedule(false)
	}
	return nil
}

// Save runs the save sequence once: a clean buffer returns without calling
// the store; otherwise dirty is cleared, the contents at that instant are
// written, and a failed write re-marks the buffer dirty. Only one store
// call per buffer runs at a time; Save waits for a running one to finish
// before checking dirtiness.
func (b *Buffer) Save(ctx context.Context) error {
	return b.save(ctx, "buffer.Save")
}

// Flush saves immediately, independent of the debounce timer. A pending
// timer is left in place and finds nothing to do when it fires.
func (b *Buffer) Flush(ctx context.Context) error {
	return b.save(ctx, "buffer.Flush")
}

// Close stops a pending debounce timer, rejects further mutations, and
// flushes. Calling Close again retries the flush.
func (b *Buffer) Close(ctx context.Context) error {
	b.mu.Lock()
	first := !b.closed
	b.closed = true
	b.disarmLocked()
	dirty := b.dirty
	b.mu.Unlock()

	if first {
		b.emit(ctx, EventClose, observability.LevelVerbose, "buffer.Close", map[string]any{
			"dirty": dirty,
		})
	}
	return b.save(ctx, "buffer.Close")
}

func (b *Buffer) save(ctx context.Context, source string) error {
	select {
	case b.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("save %s: %w", b.key, ctx.Err())
	}
	defer func() { <-b.slot }()

	b.mu.Lock()
	if b.loading || b.loadErr != nil || !b.dirty {
		b.mu.Unlock()
		b.metrics.RecordSaveSkipped()
		b.emit(ctx, EventSaveSkip, observability.LevelVerbose, source, nil)
		return nil
	}
	b.dirty = false
	snapshot := b.contents
	b.mu.Unlock()

	b.metrics.RecordSaveStarted()
	b.emit(ctx, EventSaveStart, observability.LevelVerbose, source, map[string]any{
		"bytes": len(snapshot),
	})

	if err := b.store.Save(ctx, b.key, snapshot); err != nil {
		b.mu.Lock()
		b.dirty = true
		b.mu.Unlock()

		b.metrics.RecordSaveFailed()
		b.emit(ctx, EventSaveError, observability.LevelWarning, source, map[string]any{
			"error": err.Error(),
		})
		return fmt.Errorf("save %s: %w", b.key, err)
	}

	b.metrics.RecordSaveOK()
	b.emit(ctx, EventSaveComplete, observability.LevelInfo, source, map[string]any{
		"bytes": len(snapshot),
	})
	return nil
}

func (b *Buffer) emit(ctx context.Context, t observability.EventType, level observability.Level, source string, data map[string]any) {
	attrs := map[string]any{
		"key":       b.key,
		"buffer_id": b.id,
	}
	for k, v := range data {
		attrs[k] = v
	}

	b.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      attrs,
	})
}
