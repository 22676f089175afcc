package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Watcher ingests supported files as they appear in a directory. Files are
// processed one at a time once no event has been seen for them for the
// settle period; repeated events for an ingested file are skipped by source
// deduplication.
type Watcher struct {
	runner  *Runner
	watcher *fsnotify.Watcher
	settle  time.Duration
	log     *slog.Logger

	// OnIngest, when set, is called after each attempted file.
	OnIngest func(FileOutcome)
}

func NewWatcher(runner *Runner, settle time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{runner: runner, watcher: w, settle: settle, log: runner.log}, nil
}

// Run watches dir until ctx is cancelled. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	defer w.watcher.Close()
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching directory", "dir", dir, "extensions", w.runner.loaders.Extensions())

	pending := make(map[string]time.Time)
	tick := time.NewTicker(max(w.settle/2, time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.runner.loaders.Supports(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case now := <-tick.C:
			for path, seen := range pending {
				if now.Sub(seen) < w.settle {
					continue
				}
				delete(pending, path)
				w.ingest(ctx, path)
			}
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	out, err := w.runner.IngestFile(context.WithoutCancel(ctx), path)
	if err != nil {
		w.log.Error("watched file failed", "path", path, "error", err)
	}
	if w.OnIngest != nil {
		w.OnIngest(out)
	}
}
