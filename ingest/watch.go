package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"policyassist-backend/logger"
)

// Watcher re-ingests documents in a local directory as they change.
// Events are debounced per file; a manifest change triggers a full run.
type Watcher struct {
	dir      string
	pipeline *Pipeline
	debounce time.Duration
}

func NewWatcher(dir string, pipeline *Pipeline, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{dir: dir, pipeline: pipeline, debounce: debounce}
}

// Run blocks until ctx is canceled or the watcher fails
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "policyassist.ingest.watch"})

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	slog.InfoContext(ctx, "watching for document changes", "dir", w.dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			key := filepath.Base(event.Name)
			if strings.HasPrefix(key, ".") || (!Supported(key) && !isManifest(key)) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[key] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			slog.WarnContext(ctx, "watch error", "error", err)

		case now := <-ticker.C:
			for key, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, key)
				w.apply(ctx, key)
			}
		}
	}
}

// apply settles a changed file against what is on disk now
func (w *Watcher) apply(ctx context.Context, key string) {
	_, err := os.Stat(filepath.Join(w.dir, key))
	exists := err == nil

	switch {
	case isManifest(key):
		if _, err := w.pipeline.Run(ctx, "watch"); err != nil {
			slog.ErrorContext(ctx, "re-ingest after manifest change failed", "error", err)
		}
	case !exists:
		if err := w.pipeline.Remove(ctx, key); err != nil {
			slog.ErrorContext(ctx, "failed to remove document", "document", key, "error", err)
		}
	default:
		w.pipeline.IngestOne(ctx, key)
	}
}
