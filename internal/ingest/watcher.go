package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit files already present
	Debounce    time.Duration // coalesce rapid create/write bursts
	SkipHidden  bool
}

// StartWatcher emits batches of accepted document paths that appear under
// the roots. Each emitted slice is sorted; the channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan []string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		found, err := watchTree(w, r, cfg.SkipHidden)
		if err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, found...)
		}
	}

	evCh := make(chan []string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		for _, p := range initial {
			pending[p] = struct{}{}
		}
		timer := time.NewTimer(cfg.Debounce)
		if len(pending) == 0 {
			timer.Stop()
		}
		defer timer.Stop()

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			clear(pending)
			select {
			case evCh <- batch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						// files may land before the watch is in place
						found, err := watchTree(w, e.Name, cfg.SkipHidden)
						if err != nil {
							logger.Warn("failed to watch new directory", "dir", e.Name, "error", err)
						}
						for _, p := range found {
							pending[p] = struct{}{}
						}
						if len(found) > 0 {
							timer.Reset(cfg.Debounce)
						}
						continue
					}
				}
				if AllowedExt(filepath.Ext(e.Name)) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					pending[e.Name] = struct{}{}
					timer.Reset(cfg.Debounce)
				}
			case <-timer.C:
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// watchTree adds root and every directory below it to w and returns the
// accepted documents already present.
func watchTree(w *fsnotify.Watcher, root string, skipHidden bool) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if AllowedExt(filepath.Ext(path)) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}
