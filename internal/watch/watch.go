// Package watch reports changes to the workbook file made outside the review
// session. It watches the workbook's directory rather than the file itself so
// atomic replace-by-rename saves are still seen.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 300 * time.Millisecond

// Event is a settled change to the watched file.
type Event struct {
	Path string
	Op   string
	At   time.Time
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before an event fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger routes watcher diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.log = logger
		}
	}
}

// Watcher emits an Event on Events() whenever the watched file changes.
type Watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	path     string
	dir      string
	base     string
	debounce time.Duration
	log      *zap.Logger

	pendingOp string
	lastEvent time.Time

	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New prepares a watcher for path. Call Start to begin receiving events.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		path:     abs,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		debounce: defaultDebounce,
		log:      zap.NewNop(),
		events:   make(chan Event, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Events delivers settled changes. At most one event is buffered; further
// changes while the consumer is busy are coalesced.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins watching in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fs.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	w.log.Debug("watching workbook", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fs.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fs.Close(); err != nil {
		w.log.Warn("closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Base(event.Name) != w.base {
		return
	}
	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "modify"
	case event.Op&fsnotify.Remove != 0:
		op = "delete"
	case event.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		return
	}
	w.mu.Lock()
	w.pendingOp = op
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pendingOp == "" || time.Since(w.lastEvent) < w.debounce {
		w.mu.Unlock()
		return
	}
	ev := Event{Path: w.path, Op: w.pendingOp, At: w.lastEvent}
	w.pendingOp = ""
	w.mu.Unlock()

	select {
	case w.events <- ev:
	default:
	}
}
