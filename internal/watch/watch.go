// Package watch converts workout files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/claude/workoutconv/internal/convert"
)

// DefaultDebounce is how long a file must stay quiet before it is converted.
// Editors and sync clients often write a file in several bursts.
const DefaultDebounce = 500 * time.Millisecond

// Converter is the part of *convert.Converter the watcher needs.
type Converter interface {
	CanConvert(path string) bool
	ConvertFile(ctx context.Context, input, targetID string) (*convert.Result, error)
}

// Watcher converts files created or written in a directory.
type Watcher struct {
	conv     Converter
	targetID string
	log      *slog.Logger

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration

	// OnConvert, when set, is called after every conversion attempt.
	OnConvert func(input string, res *convert.Result, err error)
}

// New creates a Watcher converting to the format identified by targetID.
func New(conv Converter, targetID string, log *slog.Logger) *Watcher {
	return &Watcher{
		conv:     conv,
		targetID: targetID,
		log:      log,
	}
}

// Run watches dir until ctx is cancelled. Conversion failures are logged and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.log.Info("watching for workouts", "dir", dir, "format", w.targetID)

	delay := w.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}

	done := make(chan struct{})
	defer close(done)
	deb := newDebouncer(delay, done)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch stopped", "dir", dir)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.conv.CanConvert(event.Name) {
				continue
			}
			deb.touch(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case f := <-deb.ready:
			if deb.due(f) {
				w.convert(ctx, f.name)
			}
		}
	}
}

func (w *Watcher) convert(ctx context.Context, input string) {
	res, err := w.conv.ConvertFile(ctx, input, w.targetID)
	switch {
	case err != nil:
		w.log.Warn("conversion failed", "file", input, "error", err)
	case res.Skipped:
		w.log.Debug("unchanged, skipping", "file", input)
	default:
		w.log.Info("converted", "file", input, "output", res.Output)
	}
	if w.OnConvert != nil {
		w.OnConvert(input, res, err)
	}
}

// firing is a debounce timer handing a path back to the watch loop.
type firing struct {
	name string
	gen  uint64
}

type pendingFire struct {
	timer *time.Timer
	gen   uint64
}

// debouncer keeps one timer per pending path. Only the newest timer of a
// path counts; a stale one that fired before it could be stopped is dropped
// by due. Timers give up sending once done is closed. touch, due and stop
// must be called from a single goroutine.
type debouncer struct {
	delay   time.Duration
	ready   chan firing
	done    <-chan struct{}
	seq     uint64
	pending map[string]pendingFire
}

func newDebouncer(delay time.Duration, done <-chan struct{}) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan firing),
		done:    done,
		pending: make(map[string]pendingFire),
	}
}

// touch restarts the quiet period of name.
func (d *debouncer) touch(name string) uint64 {
	if p, ok := d.pending[name]; ok {
		p.timer.Stop()
	}
	d.seq++
	f := firing{name: name, gen: d.seq}
	t := time.AfterFunc(d.delay, func() {
		select {
		case d.ready <- f:
		case <-d.done:
		}
	})
	d.pending[name] = pendingFire{timer: t, gen: f.gen}
	return f.gen
}

// due reports whether f is the latest timer of its path and clears it.
func (d *debouncer) due(f firing) bool {
	p, ok := d.pending[f.name]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.name)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}
