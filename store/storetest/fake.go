// Package storetest provides a deterministic store.Store for exercising
// document buffers: calls can be held open, failed on demand, and inspected
// afterwards.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/autosave/store"
)

// Call records a single Save attempt.
type Call struct {
	Key      string
	Contents string
}

// Gate holds calls inside the store until released.
type Gate struct {
	started chan Call
	release chan struct{}
}

func newGate() *Gate {
	return &Gate{
		started: make(chan Call, 64),
		release: make(chan struct{}, 64),
	}
}

// Started delivers each call as it enters the store and begins waiting.
func (g *Gate) Started() <-chan Call {
	return g.started
}

// Release lets one held call proceed. It never blocks; releases issued
// before a call arrives are banked.
func (g *Gate) Release() {
	g.release <- struct{}{}
}

func (g *Gate) wait(ctx context.Context, call Call) error {
	g.started <- call
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake is an in-memory store.Store with failure injection and call
// recording. The zero value is not usable; call New.
type Fake struct {
	docs      map[string]string
	saves     []Call
	loads     []string
	lists     int
	failSaves int
	loadErr   error
	saveGate  *Gate
	loadGate  *Gate
	inflight  map[string]int
	overlaps  int
	mu        sync.Mutex
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		docs:     make(map[string]string),
		inflight: make(map[string]int),
	}
}

// Seed stores contents under key without recording a call.
func (f *Fake) Seed(key, contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[key] = contents
}

// Value returns the committed contents for key.
func (f *Fake) Value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.docs[key]
	return v, ok
}

// SaveCalls returns every Save attempt in arrival order, failed ones
// included.
func (f *Fake) SaveCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.saves)
}

// LoadCalls returns the keys passed to Load in arrival order.
func (f *Fake) LoadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.loads)
}

// ListCalls returns how many times List was called.
func (f *Fake) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// Overlaps reports how many Save calls arrived while another Save for the
// same key was still in progress.
func (f *Fake) Overlaps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlaps
}

// FailSaves makes the next n Save calls fail with store.ErrSaveFailed.
func (f *Fake) FailSaves(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSaves = n
}

// FailLoads makes every subsequent Load return err. A nil err restores
// normal behavior.
func (f *Fake) FailLoads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

// HoldSaves makes every subsequent Save wait on the returned Gate.
func (f *Fake) HoldSaves() *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveGate = newGate()
	return f.saveGate
}

// HoldLoads makes every subsequent Load wait on the returned Gate.
func (f *Fake) HoldLoads() *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadGate = newGate()
	return f.loadGate
}

func (f *Fake) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lists++
	var keys []string
	for k := range f.docs {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *Fake) Load(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	f.loads = append(f.loads, key)
	gate := f.loadGate
	f.mu.Unlock()

	if gate != nil {
		if err := gate.wait(ctx, Call{Key: key}); err != nil {
			return "", fmt.Errorf("%w: %s: %v", store.ErrLoadFailed, key, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return "", f.loadErr
	}
	contents, ok := f.docs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", store.ErrKeyNotFound, key)
	}
	return contents, nil
}

func (f *Fake) Save(ctx context.Context, key, contents string) error {
	call := Call{Key: key, Contents: contents}

	f.mu.Lock()
	f.saves = append(f.saves, call)
	if f.inflight[key] > 0 {
		f.overlaps++
	}
	f.inflight[key]++
	gate := f.saveGate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight[key]--
		f.mu.Unlock()
	}()

	if gate != nil {
		if err := gate.wait(ctx, call); err != nil {
			return fmt.Errorf("%w: %s: %v", store.ErrSaveFailed, key, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSaves > 0 {
		f.failSaves--
		return fmt.Errorf("%w: %s: injected failure", store.ErrSaveFailed, key)
	}
	f.docs[key] = contents
	return nil
}
