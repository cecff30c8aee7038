package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"foresight/internal/logging"
)

// CycleFunc receives the outcome of each watch-triggered cycle.
type CycleFunc func(result *CycleResult, err error)

// Watcher re-runs the pipeline whenever the event directory settles after
// a change. Rapid writes are debounced so one ingest burst triggers one
// cycle.
type Watcher struct {
	orch     *Orchestrator
	dir      string
	opts     Options
	onCycle  CycleFunc
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time
	dirty   bool
	running bool

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher builds a watcher over dir. onCycle runs on the watcher
// goroutine after every completed cycle, including failed ones.
func NewWatcher(orch *Orchestrator, dir string, opts Options, onCycle CycleFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		orch:     orch,
		dir:      dir,
		opts:     opts,
		onCycle:  onCycle,
		debounce: orch.cfg.GetWatchDebounce(),
		watcher:  fsw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the loop runs until Stop or
// context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s (debounce %s)", w.dir, w.debounce)

	go w.run(ctx)
	return nil
}

// Stop halts the loop and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)

		case <-ticker.C:
			w.runSettledCycle(ctx)
		}
	}
}

// handleEvent marks the directory dirty for any event-file change.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !relevantEvent(event) {
		return
	}
	logging.WatchDebug("change: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.dirty = true
	w.pending = time.Now()
	w.mu.Unlock()
}

// runSettledCycle fires one cycle once the last change is older than the
// debounce window.
func (w *Watcher) runSettledCycle(ctx context.Context) {
	w.mu.Lock()
	ready := w.dirty && time.Since(w.pending) >= w.debounce
	if ready {
		w.dirty = false
	}
	w.mu.Unlock()
	if !ready {
		return
	}

	logging.Watch("input settled, running cycle")
	result, err := w.orch.Run(ctx, w.dir, w.opts)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("cycle failed: %v", err)
	}
	if w.onCycle != nil {
		w.onCycle(result, err)
	}
}

// relevantEvent filters to create/write/rename/remove of event files.
func relevantEvent(event fsnotify.Event) bool {
	switch filepath.Ext(event.Name) {
	case ".json", ".ndjson", ".jsonl":
	default:
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0
}
