package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes exactly one file for content modifications and publishes
// a bus event for each one. Metadata-only changes, renames and removals are
// ignored; only writes (and the create half of an editor's write-rename
// dance) count as content changes.
type Watcher struct {
	path   string
	bus    *Bus
	logger *slog.Logger
}

// NewWatcher returns a watcher for path publishing to bus.
func NewWatcher(path string, bus *Bus, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, bus: bus, logger: logger}
}

// Run watches until ctx is cancelled or the event stream ends. A setup
// failure is returned to the caller, which keeps serving without live
// reload; that degraded mode beats crashing the instance.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.path, err)
	}

	w.logger.Info("watching for changes", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				w.bus.Publish()
				w.logger.Info("file changed", "path", ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			// Watch errors are transient; keep watching.
			w.logger.Warn("watch error", "error", err)
		}
	}
}
