package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/claude/workoutconv/internal/convert"
)

type event struct {
	input string
	err   error
}

func startWatcher(t *testing.T, conv Converter, dir string) (chan event, context.CancelFunc, chan error) {
	t.Helper()
	events := make(chan event, 16)
	w := New(conv, "wahoo", slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.Debounce = 50 * time.Millisecond
	w.OnConvert = func(input string, _ *convert.Result, err error) {
		events <- event{input: input, err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	return events, cancel, done
}

func waitEvent(t *testing.T, events chan event) event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for conversion")
	}
	return event{}
}

// countingConverter records how often each file is converted.
type countingConverter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingConverter) CanConvert(path string) bool {
	return filepath.Ext(path) == ".zwo"
}

func (c *countingConverter) ConvertFile(_ context.Context, input, _ string) (*convert.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[input]++
	return &convert.Result{Input: input}, nil
}

func (c *countingConverter) count(input string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[input]
}

// TestWatchConvertsNewFiles verifies a new source file is converted once
// after a burst of writes and unrelated files are ignored.
func TestWatchConvertsNewFiles(t *testing.T) {
	dir := t.TempDir()
	conv := &countingConverter{}
	events, cancel, done := startWatcher(t, conv, dir)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	path := filepath.Join(dir, "a.zwo")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		f.WriteString("<workout_file/>")
		f.Sync()
	}
	f.Close()

	ev := waitEvent(t, events)
	if ev.input != path || ev.err != nil {
		t.Errorf("event = %+v, want %s", ev, path)
	}

	// let any stray timer fire before checking the count
	time.Sleep(200 * time.Millisecond)
	if n := conv.count(path); n != 1 {
		t.Errorf("conversions = %d, want 1", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

// TestWatchEndToEnd verifies the watcher drives a real converter.
func TestWatchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	conv := convert.New(convert.DefaultRegistry(), nil, convert.Options{Output: out}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	events, cancel, done := startWatcher(t, conv, dir)
	defer func() {
		cancel()
		<-done
	}()

	doc := `<workout_file><name>Spin</name><workout><SteadyState Duration="60" Power="0.6"/></workout></workout_file>`
	if err := os.WriteFile(filepath.Join(dir, "spin.zwo"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if ev := waitEvent(t, events); ev.err != nil {
		t.Fatalf("conversion failed: %v", ev.err)
	}
	if _, err := os.Stat(filepath.Join(out, "spin.plan")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

// TestWatchMissingDir verifies Run fails when the directory does not exist.
func TestWatchMissingDir(t *testing.T) {
	w := New(&countingConverter{}, "wahoo", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := w.Run(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// TestDebounceOnlyLatestTimerIsDue verifies a restarted path is due once, for
// its newest timer only.
func TestDebounceOnlyLatestTimerIsDue(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	d := newDebouncer(time.Hour, done)
	defer d.stop()

	first := d.touch("a.zwo")
	second := d.touch("a.zwo")

	if d.due(firing{name: "a.zwo", gen: first}) {
		t.Error("stale timer reported due")
	}
	if !d.due(firing{name: "a.zwo", gen: second}) {
		t.Error("latest timer not due")
	}
	if d.due(firing{name: "a.zwo", gen: second}) {
		t.Error("timer due twice")
	}
}

// TestDebounceBurstFiresOnce verifies rapid touches whose timers race each
// other still yield a single due firing.
func TestDebounceBurstFiresOnce(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	d := newDebouncer(time.Millisecond, done)
	defer d.stop()

	for range 20 {
		d.touch("a.zwo")
		time.Sleep(500 * time.Microsecond)
	}

	n := 0
	timeout := time.After(300 * time.Millisecond)
	for {
		select {
		case f := <-d.ready:
			if d.due(f) {
				n++
			}
		case <-timeout:
			if n != 1 {
				t.Errorf("due firings = %d, want 1", n)
			}
			return
		}
	}
}

// TestDebounceTimersReleaseOnDone verifies pending timers do not block once
// the watch loop has stopped reading.
func TestDebounceTimersReleaseOnDone(t *testing.T) {
	done := make(chan struct{})
	d := newDebouncer(time.Millisecond, done)
	d.touch("a.zwo")
	d.touch("b.zwo")
	close(done)

	// with nobody reading ready, a blocked timer goroutine would hold the send
	time.Sleep(50 * time.Millisecond)
	select {
	case f := <-d.ready:
		t.Errorf("unexpected firing %+v after done", f)
	default:
	}
}
