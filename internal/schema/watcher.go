package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a schema file into a Registry whenever it changes.
type Watcher struct {
	registry *Registry
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher returns a watcher for path. A debounce of zero selects
// DefaultDebounce.
func NewWatcher(r *Registry, path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{registry: r, path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that files replaced by rename are picked up as well.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create schema watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("schema watcher started", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("schema watcher", "error", err)

		case <-timer.C:
			if _, err := w.registry.LoadFile(w.path); err != nil {
				w.logger.Error("reload schema file", "path", w.path, "error", err)
			}
		}
	}
}
