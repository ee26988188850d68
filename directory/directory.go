// Package directory maps the currently selected document key to exactly one
// live buffer. Switching keys retires the outgoing buffer with a flush and
// opens a fresh buffer for the incoming key; closing the directory flushes
// whatever is still open.
//
//	d, err := directory.New(&cfg)
//	b, err := d.Select(ctx, "notes")
//	...
//	err = d.Close(ctx)
package directory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/autosave/buffer"
	"github.com/tailored-agentic-units/autosave/observability"
	"github.com/tailored-agentic-units/autosave/store"
)

// Option configures a Directory after config-driven initialization.
type Option func(*Directory)

// WithStore overrides the config-created store.
func WithStore(s store.Store) Option {
	return func(d *Directory) { d.store = s }
}

// WithObserver overrides the config-selected observer. Buffers created by
// the directory report to the same observer.
func WithObserver(o observability.Observer) Option {
	return func(d *Directory) { d.observer = o }
}

// WithBufferOptions appends options applied to every buffer the directory
// creates.
func WithBufferOptions(opts ...buffer.Option) Option {
	return func(d *Directory) { d.bufferOpts = append(d.bufferOpts, opts...) }
}

// Directory owns at most one active buffer. All methods are safe for
// concurrent use.
type Directory struct {
	id         string
	store      store.Store
	observer   observability.Observer
	bufferCfg  buffer.Config
	bufferOpts []buffer.Option

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	active     *buffer.Buffer
	retiring   map[string]chan struct{}
	retireErrs []error
	closed     bool
	wg         sync.WaitGroup
}

// New creates a Directory from configuration. Options applied after
// initialization can override the store and observer.
func New(cfg *Config, opts ...Option) (*Directory, error) {
	s, err := store.NewStore(&cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	name := cfg.Observer
	if name == "" {
		name = defaultObserver
	}
	observer, err := observability.GetObserver(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Directory{
		id:        uuid.Must(uuid.NewV7()).String(),
		store:     s,
		observer:  observer,
		bufferCfg: cfg.Buffer,
		ctx:       ctx,
		cancel:    cancel,
		retiring:  make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// ID returns the directory session identifier.
func (d *Directory) ID() string {
	return d.id
}

// Active returns the active buffer, or nil when no key is selected.
func (d *Directory) Active() *buffer.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// ActiveKey returns the selected key, or "" when none is selected.
func (d *Directory) ActiveKey() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return ""
	}
	return d.active.Key()
}

// Keys lists the store's keys in sorted order.
func (d *Directory) Keys(ctx context.Context) ([]string, error) {
	keys, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// Select makes key the active document. Selecting the active key returns
// its buffer unchanged. Selecting another key starts a background flush of
// the outgoing buffer and opens a new, still-loading buffer for key. If key
// is itself being retired, Select waits for that flush to finish so the new
// buffer loads the flushed contents.
func (d *Directory) Select(ctx context.Context, key string) (*buffer.Buffer, error) {
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return nil, ErrClosed
		}
		if d.active != nil && d.active.Key() == key {
			b := d.active
			d.mu.Unlock()
			return b, nil
		}

		done, pending := d.retiring[key]
		if !pending {
			break
		}
		d.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	outgoing := d.active
	if outgoing != nil {
		done := d.retireLocked(outgoing)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.finishRetire(outgoing, done, outgoing.Close(d.ctx), true)
		}()
	}

	b := buffer.New(d.ctx, d.store, key, &d.bufferCfg, d.bufferOptions()...)
	d.active = b
	d.mu.Unlock()

	d.emit(ctx, EventSelect, observability.LevelInfo, "directory.Select", map[string]any{
		"key":       key,
		"buffer_id": b.ID(),
	})
	return b, nil
}

// Deselect retires the active buffer and returns the result of its final
// flush, letting the caller decide whether to warn about unsaved changes.
func (d *Directory) Deselect(ctx context.Context) error {
	d.mu.Lock()
	outgoing := d.active
	if outgoing == nil {
		d.mu.Unlock()
		return nil
	}
	done := d.retireLocked(outgoing)
	d.mu.Unlock()

	err := outgoing.Close(ctx)
	d.finishRetire(outgoing, done, err, false)
	return err
}

// Wait blocks until every background retire started by Select has finished
// and returns their joined errors.
func (d *Directory) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.retireErrs...)
}

// Close flushes and releases the active buffer, waits for background
// retires, and stops autosaving. It returns every flush error encountered.
func (d *Directory) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	start := time.Now()
	errs := []error{d.Deselect(ctx), d.Wait(ctx)}
	d.cancel()

	err := errors.Join(errs...)
	d.emit(ctx, EventClose, observability.LevelInfo, "directory.Close", map[string]any{
		"duration": time.Since(start).String(),
		"failed":   err != nil,
	})
	return err
}

func (d *Directory) bufferOptions() []buffer.Option {
	opts := make([]buffer.Option, 0, len(d.bufferOpts)+1)
	opts = append(opts, buffer.WithObserver(d.observer))
	return append(opts, d.bufferOpts...)
}

// retireLocked detaches b from the active slot and marks its key as
// retiring until finishRetire runs.
func (d *Directory) retireLocked(b *buffer.Buffer) chan struct{} {
	if d.active == b {
		d.active = nil
	}
	done := make(chan struct{})
	d.retiring[b.Key()] = done
	return done
}

func (d *Directory) finishRetire(b *buffer.Buffer, done chan struct{}, err error, background bool) {
	d.mu.Lock()
	if d.retiring[b.Key()] == done {
		delete(d.retiring, b.Key())
	}
	if err != nil && background {
		d.retireErrs = append(d.retireErrs, err)
	}
	d.mu.Unlock()
	close(done)

	data := map[string]any{
		"key":        b.Key(),
		"buffer_id":  b.ID(),
		"background": background,
	}
	if err != nil {
		data["error"] = err.Error()
		d.emit(d.ctx, EventRetireError, observability.LevelWarning, "directory.retire", data)
		return
	}
	d.emit(d.ctx, EventRetire, observability.LevelVerbose, "directory.retire", data)
}

func (d *Directory) emit(ctx context.Context, t observability.EventType, level observability.Level, source string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["directory_id"] = d.id

	d.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
