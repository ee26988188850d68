package directory_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/tailored-agentic-units/autosave/buffer"
	"github.com/tailored-agentic-units/autosave/core/config"
	"github.com/tailored-agentic-units/autosave/directory"
	"github.com/tailored-agentic-units/autosave/observability"
	"github.com/tailored-agentic-units/autosave/store"
	"github.com/tailored-agentic-units/autosave/store/storetest"
)

func newDirectory(t *testing.T, s store.Store, opts ...directory.Option) *directory.Directory {
	t.Helper()
	cfg := directory.DefaultConfig()
	opts = append([]directory.Option{
		directory.WithStore(s),
		directory.WithObserver(observability.NoOpObserver{}),
	}, opts...)

	d, err := directory.New(&cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func selectLoaded(t *testing.T, d *directory.Directory, key string) *buffer.Buffer {
	t.Helper()
	b, err := d.Select(context.Background(), key)
	if err != nil {
		t.Fatalf("Select(%q) error = %v", key, err)
	}
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return b
}

func TestDirectory_EndToEnd(t *testing.T) {
	fake := storetest.New()
	fake.Seed("Test 1", "Hello, world.")
	d := newDirectory(t, fake)

	b, err := d.Select(context.Background(), "Test 1")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if b.Loading() {
		t.Fatal("Loading() = true after Wait")
	}
	got, err := b.Contents()
	if err != nil {
		t.Fatalf("Contents() error = %v", err)
	}
	if got != "Hello, world." {
		t.Fatalf("Contents() = %q, want %q", got, "Hello, world.")
	}

	if err := b.SetContents("Hello, updated."); err != nil {
		t.Fatalf("SetContents() error = %v", err)
	}
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if v, _ := fake.Value("Test 1"); v != "Hello, updated." {
		t.Errorf("stored value = %q, want %q", v, "Hello, updated.")
	}
	if b.Dirty() {
		t.Error("Dirty() = true after flush")
	}

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestDirectory_EndToEnd_MissingKey(t *testing.T) {
	fake := storetest.New()
	d := newDirectory(t, fake)

	b := selectLoaded(t, d, "Test 1")
	if !b.Created() {
		t.Error("Created() = false for a missing key")
	}
	if got, _ := b.Contents(); got != "" {
		t.Errorf("Contents() = %q, want empty", got)
	}

	_ = b.SetContents("Hello, new.")
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if v, _ := fake.Value("Test 1"); v != "Hello, new." {
		t.Errorf("stored value = %q, want %q", v, "Hello, new.")
	}
}

func TestDirectory_Select_SameKey(t *testing.T) {
	fake := storetest.New()
	d := newDirectory(t, fake)

	first := selectLoaded(t, d, "doc")
	second := selectLoaded(t, d, "doc")

	if first != second {
		t.Error("Select() of the active key returned a different buffer")
	}
	if n := len(fake.LoadCalls()); n != 1 {
		t.Errorf("store received %d loads, want 1", n)
	}
}

func TestDirectory_Select_RetiresOutgoing(t *testing.T) {
	fake := storetest.New()
	fake.Seed("a", "alpha")
	fake.Seed("b", "beta")
	rec := observability.NewRecorder()
	d := newDirectory(t, fake, directory.WithObserver(rec))

	a := selectLoaded(t, d, "a")
	_ = a.SetContents("alpha edited")

	b := selectLoaded(t, d, "b")
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if v, _ := fake.Value("a"); v != "alpha edited" {
		t.Errorf("stored value for a = %q, want %q", v, "alpha edited")
	}
	if !a.Closed() {
		t.Error("outgoing buffer not closed")
	}
	if err := a.SetContents("too late"); !errors.Is(err, buffer.ErrClosed) {
		t.Errorf("SetContents() on retired buffer error = %v, want %v", err, buffer.ErrClosed)
	}
	if d.Active() != b || d.ActiveKey() != "b" {
		t.Errorf("active key = %q, want %q", d.ActiveKey(), "b")
	}
	if rec.Count(directory.EventRetire) != 1 {
		t.Errorf("retire events = %d, want 1", rec.Count(directory.EventRetire))
	}
	if rec.Count(buffer.EventLoadComplete) != 2 {
		t.Errorf("buffer load events = %d, want 2", rec.Count(buffer.EventLoadComplete))
	}
}

func TestDirectory_Select_WaitsForRetiringSameKey(t *testing.T) {
	fake := storetest.New()
	fake.Seed("a", "v0")
	d := newDirectory(t, fake)

	a := selectLoaded(t, d, "a")
	_ = a.SetContents("v1")

	gate := fake.HoldSaves()
	selectLoaded(t, d, "b")
	<-gate.Started()

	reselected := make(chan *buffer.Buffer, 1)
	go func() {
		b, err := d.Select(context.Background(), "a")
		if err != nil {
			t.Errorf("Select(a) error = %v", err)
		}
		reselected <- b
	}()

	select {
	case <-reselected:
		t.Fatal("Select(a) returned while a's retire flush was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	gate.Release()
	again := <-reselected
	if err := again.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if again == a {
		t.Fatal("Select(a) reused the retired buffer")
	}
	if got, _ := again.Contents(); got != "v1" {
		t.Errorf("Contents() = %q, want flushed %q", got, "v1")
	}
}

func TestDirectory_Select_CancelledWhileWaiting(t *testing.T) {
	fake := storetest.New()
	d := newDirectory(t, fake)

	a := selectLoaded(t, d, "a")
	_ = a.SetContents("v1")

	gate := fake.HoldSaves()
	selectLoaded(t, d, "b")
	<-gate.Started()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := d.Select(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Select() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if d.ActiveKey() != "b" {
		t.Errorf("active key = %q, want %q", d.ActiveKey(), "b")
	}
	gate.Release()
}

func TestDirectory_Keys_Sorted(t *testing.T) {
	fake := storetest.New()
	for _, key := range []string{"Test 3", "Test 1", "Test 2"} {
		fake.Seed(key, "")
	}
	d := newDirectory(t, fake)

	keys, err := d.Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	want := []string{"Test 1", "Test 2", "Test 3"}
	if !slices.Equal(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

func TestDirectory_Deselect(t *testing.T) {
	fake := storetest.New()
	d := newDirectory(t, fake)

	if err := d.Deselect(context.Background()); err != nil {
		t.Fatalf("Deselect() with nothing active error = %v", err)
	}

	b := selectLoaded(t, d, "doc")
	_ = b.SetContents("saved on deselect")
	fake.FailSaves(1)

	if err := d.Deselect(context.Background()); !errors.Is(err, store.ErrSaveFailed) {
		t.Fatalf("Deselect() error = %v, want %v", err, store.ErrSaveFailed)
	}
	if d.Active() != nil {
		t.Error("Active() != nil after Deselect")
	}
	if !b.Dirty() {
		t.Error("Dirty() = false after failed deselect flush")
	}

	// The caller can retry the flush on the retired buffer.
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close() retry error = %v", err)
	}
	if v, _ := fake.Value("doc"); v != "saved on deselect" {
		t.Errorf("stored value = %q, want %q", v, "saved on deselect")
	}
}

func TestDirectory_Close(t *testing.T) {
	fake := storetest.New()
	rec := observability.NewRecorder()
	d := newDirectory(t, fake, directory.WithObserver(rec))

	a := selectLoaded(t, d, "a")
	_ = a.SetContents("a final")
	b := selectLoaded(t, d, "b")
	_ = b.SetContents("b final")

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for key, want := range map[string]string{"a": "a final", "b": "b final"} {
		if v, _ := fake.Value(key); v != want {
			t.Errorf("stored value for %s = %q, want %q", key, v, want)
		}
	}
	if d.Active() != nil {
		t.Error("Active() != nil after Close")
	}
	if _, err := d.Select(context.Background(), "c"); !errors.Is(err, directory.ErrClosed) {
		t.Errorf("Select() after Close error = %v, want %v", err, directory.ErrClosed)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if rec.Count(directory.EventClose) != 1 {
		t.Errorf("close events = %d, want 1", rec.Count(directory.EventClose))
	}
}

func TestDirectory_Close_ReportsBackgroundFailures(t *testing.T) {
	fake := storetest.New()
	rec := observability.NewRecorder()
	d := newDirectory(t, fake, directory.WithObserver(rec))

	a := selectLoaded(t, d, "a")
	_ = a.SetContents("lost?")
	fake.FailSaves(1)
	selectLoaded(t, d, "b")

	err := d.Close(context.Background())
	if !errors.Is(err, store.ErrSaveFailed) {
		t.Fatalf("Close() error = %v, want %v", err, store.ErrSaveFailed)
	}
	if rec.Count(directory.EventRetireError) != 1 {
		t.Errorf("retire error events = %d, want 1", rec.Count(directory.EventRetireError))
	}
	if !a.Dirty() {
		t.Error("Dirty() = false for buffer whose retire flush failed")
	}
}

func TestDirectory_AutosaveThroughDirectory(t *testing.T) {
	fake := storetest.New()
	cfg := directory.DefaultConfig()
	cfg.Buffer.Merge(&buffer.Config{DebounceInterval: config.Duration(5 * time.Millisecond)})

	d, err := directory.New(&cfg,
		directory.WithStore(fake),
		directory.WithObserver(observability.NoOpObserver{}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close(context.Background())

	b := selectLoaded(t, d, "doc")
	_ = b.SetContents("autosaved")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if v, _ := fake.Value("doc"); v == "autosaved" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for autosave")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_UnknownObserver(t *testing.T) {
	cfg := directory.DefaultConfig()
	cfg.Observer = "does-not-exist"

	if _, err := directory.New(&cfg); err == nil {
		t.Error("New() error = nil, want error for unknown observer")
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := directory.DefaultConfig()
	cfg.Store.Backend = "does-not-exist"

	if _, err := directory.New(&cfg); !errors.Is(err, store.ErrUnknownBackend) {
		t.Errorf("New() error = %v, want %v", err, store.ErrUnknownBackend)
	}
}

func TestNew_IDsUnique(t *testing.T) {
	d1 := newDirectory(t, storetest.New())
	d2 := newDirectory(t, storetest.New())

	if d1.ID() == "" || d1.ID() == d2.ID() {
		t.Errorf("directory IDs = %q and %q, want distinct non-empty", d1.ID(), d2.ID())
	}
}
