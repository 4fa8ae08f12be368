// Package watcher watches an inbox directory and feeds dropped files into ingestion.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/imyousuf/bizgraph/internal/logger"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is a debounced change to one file in the inbox.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// DefaultDebounce is how long a path must stay quiet before its event is
// emitted. Spreadsheet tools write in several bursts.
const DefaultDebounce = 500 * time.Millisecond

// Config holds configuration for the inbox watcher.
type Config struct {
	// Dir is the inbox directory; subdirectories are watched too.
	Dir string
	// Exclude lists ignore patterns applied before Dir/.bizgraphignore.
	Exclude []string
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	Logger   *logger.Logger
}

// Watcher watches the inbox and emits debounced events.
type Watcher struct {
	cfg      Config
	matcher  *Matcher
	debounce time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher for cfg.Dir. The directory must exist.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watcher: inbox directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "watch", Path: cfg.Dir, Err: errors.New("not a directory")}
	}
	matcher, err := NewMatcher(cfg.Dir, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Watcher{cfg: cfg, matcher: matcher, debounce: debounce, log: log.With("component", "watcher")}, nil
}

// Matcher returns the ignore matcher for the inbox.
func (w *Watcher) Matcher() *Matcher { return w.matcher }

// Start begins watching and returns the event channel, which is closed when
// ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	if err := w.addRecursive(w.cfg.Dir); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.cfg.Dir && w.matcher.MatchDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	type pendingEvent struct {
		event Event
		timer *time.Timer
		gen   uint64
	}
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		gen     uint64
		pending = make(map[string]*pendingEvent)
	)

	defer func() {
		mu.Lock()
		for path, p := range pending {
			if p.timer.Stop() {
				wg.Done()
			}
			delete(pending, path)
		}
		mu.Unlock()
		wg.Wait()
		close(out)
	}()

	// emit fires once per timer; a superseded timer finds a newer generation
	// and does nothing.
	emit := func(path string, g uint64) {
		defer wg.Done()
		mu.Lock()
		p, ok := pending[path]
		if !ok || p.gen != g {
			mu.Unlock()
			return
		}
		delete(pending, path)
		mu.Unlock()
		select {
		case out <- p.event:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if !w.matcher.MatchDir(fsEvent.Name) {
						_ = w.addRecursive(fsEvent.Name)
					}
					continue
				}
			}
			if w.matcher.Match(fsEvent.Name) {
				continue
			}

			path := fsEvent.Name
			mu.Lock()
			if p, exists := pending[path]; exists && p.timer.Stop() {
				wg.Done()
			}
			gen++
			g := gen
			wg.Add(1)
			pending[path] = &pendingEvent{
				event: Event{Path: path, Op: op, Time: time.Now()},
				gen:   g,
				timer: time.AfterFunc(w.debounce, func() { emit(path, g) }),
			}
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
