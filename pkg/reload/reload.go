// Package reload watches the provider and workspace snapshot files and,
// on a detected change, debounces the event and notifies a supervisor
// callback so it can tear down active sessions and re-read the
// snapshots. It carries no request-level state.
package reload

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/federatedmcp/gateway/pkg/log"
)

// DefaultDebounceInterval is how long the watcher waits for additional
// writes before firing a single change notification.
const DefaultDebounceInterval = 250 * time.Millisecond

// Watcher watches the providers and workspaces snapshot files for
// changes and invokes onChange, debounced, when either changes.
type Watcher struct {
	mu               sync.Mutex
	providersPath    string
	workspacesPath   string
	debounceInterval time.Duration
	onChange         func()

	fireMu sync.Mutex // serializes onChange invocations

	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	running bool
}

// New returns a Watcher for the given snapshot paths. onChange is
// invoked (on its own goroutine, one at a time) after the debounce
// window elapses with no further writes.
func New(providersPath, workspacesPath string, onChange func()) *Watcher {
	return &Watcher{
		providersPath:    providersPath,
		workspacesPath:   workspacesPath,
		debounceInterval: DefaultDebounceInterval,
		onChange:         onChange,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching. It is a no-op if already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.providersPath); err != nil {
		_ = fsw.Close()
		return err
	}
	if err := fsw.Add(w.workspacesPath); err != nil {
		_ = fsw.Close()
		return err
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	go w.processEvents()

	log.Info("reload", "watching snapshot files for changes", "providers", w.providersPath, "workspaces", w.workspacesPath)
	return nil
}

// Stop ends the watch. It is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	_ = w.fsw.Close()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.running = false
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error("reload", err, "filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceInterval, func() {
		w.fireMu.Lock()
		defer w.fireMu.Unlock()
		log.Info("reload", "snapshot change detected, firing reload", "file", event.Name)
		w.onChange()
	})
}
