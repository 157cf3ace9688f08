// Package watch reruns a stats computation whenever the project dump on
// disk changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	logpkg "github.com/benvon/video-tag-stats/internal/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events editors emit on save
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called once per settled change of the watched file
type ChangeFunc func(ctx context.Context) error

// Watcher monitors a single file. The parent directory is watched so
// atomic rename-on-save is seen as a change.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger
}

// New creates a watcher for path
func New(path string, debounce time.Duration, onChange ChangeFunc, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, onChange: onChange, logger: logger}
}

// Run blocks until ctx is cancelled. Errors from onChange are logged and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", logpkg.SanitizePath(w.path), err)
	}
	w.logger.Info("watch_started", zap.String("path", logpkg.SanitizePath(w.path)))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch_stopped")
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debug("watch_event", zap.String("op", evt.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", zap.String("error", logpkg.SanitizeError(err)))
		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("watch_rerun_failed", zap.String("error", logpkg.SanitizeError(err)))
			}
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != w.path {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
