package services

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/photonav/gallery/internal/observability"
)

// DebounceInterval is the quiescence window for change notifications.
// Bursts of filesystem events collapse to one trailing callback; no
// ordering is needed across collapsed events since the handler always does
// a full resync.
const DebounceInterval = 500 * time.Millisecond

// ChangeWatcher observes media directories for external mutation and
// triggers a debounced resync.
type ChangeWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	log      *observability.Logger

	mu         sync.Mutex
	registered map[string]bool
	timer      *time.Timer
	closed     bool
}

// NewChangeWatcher creates a watcher that invokes onChange after events
// settle.
func NewChangeWatcher(onChange func()) (*ChangeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ChangeWatcher{
		watcher:    w,
		onChange:   onChange,
		debounce:   DebounceInterval,
		log:        observability.GetLogger().WithField("component", "watcher"),
		registered: make(map[string]bool),
	}, nil
}

// Register starts watching a directory. Registering the same path twice
// logs a warning and is otherwise a no-op.
func (w *ChangeWatcher) Register(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.registered[path] {
		w.log.Warnf("path already registered: %s", path)
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return err
	}
	w.registered[path] = true
	w.log.Debugf("watching %s", path)
	return nil
}

// Unregister stops watching a directory. Unknown paths are a no-op.
func (w *ChangeWatcher) Unregister(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.registered[path] {
		return nil
	}
	delete(w.registered, path)
	return w.watcher.Remove(path)
}

// Run pumps filesystem events until the context ends. Each event resets
// the debounce timer; the callback fires once after the burst settles.
func (w *ChangeWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.bump()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watch error: %v", err)
		}
	}
}

func (w *ChangeWatcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// Close releases the OS watch registrations and stops any pending
// callback.
func (w *ChangeWatcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
