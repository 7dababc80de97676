// Package watcher re-runs work when a file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc handles one debounced change. Errors are logged and watching
// continues.
type ChangeFunc func(ctx context.Context, path string) error

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange ChangeFunc
	debounce time.Duration
	logger   *slog.Logger

	started     chan struct{}
	startedOnce sync.Once
}

// New creates a new file watcher
func New(path string, onChange ChangeFunc) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   slog.Default().With("component", "watcher"),
		started:  make(chan struct{}),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	if logger != nil {
		w.logger = logger.With("component", "watcher")
	}
	return w
}

// Started is closed once the first watch is registered
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Watch blocks until ctx is cancelled, calling onChange after each burst of
// writes to the file settles. onChange runs on the calling goroutine, so
// runs never overlap. A Watcher may be watched again after Watch returns.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}

	// Watch the directory so replaced files (editor saves) are still seen
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}
	w.startedOnce.Do(func() { close(w.started) })
	w.logger.Info("watching for changes", "path", absPath)

	// Reset discards stale ticks (Go 1.23 timer semantics)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			timer.Reset(w.debounce)

		case <-timer.C:
			w.logger.Info("file changed", "path", absPath)
			if err := w.onChange(ctx, absPath); err != nil {
				w.logger.Error("change handler failed", "path", absPath, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
