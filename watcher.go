package agentgate

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// policyReloadDebounce coalesces the burst of filesystem events that
// editors emit on a single save.
const policyReloadDebounce = 500 * time.Millisecond

// PolicyWatcher watches a policy file and delivers validated reloads to a
// callback. The containing directory is watched rather than the file
// itself, so atomic-save editors (write temp file, rename over target) do
// not break the watch.
type PolicyWatcher struct {
	path     string
	onChange func(*Policy)
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	timerMu      sync.Mutex
	pendingTimer *time.Timer
	closed       bool
}

// NewPolicyWatcher creates a watcher for the policy file at path. onChange
// receives each successfully loaded and validated policy; loads that fail
// validation are logged and dropped, keeping the previous policy in
// effect.
func NewPolicyWatcher(path string, onChange func(*Policy), logger *slog.Logger) (*PolicyWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &PolicyWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger,
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.run()
	w.logger.Info("watching policy file", "path", w.path)
	return w, nil
}

// Close stops the watcher. It is safe to call more than once; subsequent
// calls return ErrWatcherClosed.
func (w *PolicyWatcher) Close() error {
	w.timerMu.Lock()
	if w.closed {
		w.timerMu.Unlock()
		return ErrWatcherClosed
	}
	w.closed = true
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.timerMu.Unlock()

	close(w.stopChan)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *PolicyWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("policy watcher error", "error", err)
		case <-w.stopChan:
			return
		}
	}
}

func (w *PolicyWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.scheduleReload()
}

func (w *PolicyWatcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.closed {
		return
	}
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.pendingTimer = time.AfterFunc(policyReloadDebounce, w.reload)
}

func (w *PolicyWatcher) reload() {
	// The debounce timer may fire concurrently with Close; a fired timer
	// cannot be stopped, so re-check closed before touching the callback.
	w.timerMu.Lock()
	if w.closed {
		w.timerMu.Unlock()
		return
	}
	w.timerMu.Unlock()

	policy, err := LoadPolicy(w.path)
	if err != nil {
		w.logger.Error("policy reload failed, keeping previous policy", "path", w.path, "error", err)
		return
	}
	w.logger.Info("policy reloaded", "path", w.path, "security_level", policy.SecurityLevel)
	if w.onChange != nil {
		w.onChange(policy)
	}
}
