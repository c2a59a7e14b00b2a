package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce batches bursts of events, such as an editor's save sequence
const watchDebounce = 300 * time.Millisecond

// skippedWatchDirs are never descended into
var skippedWatchDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
	".mypy_cache":  true,
}

// watchAndRerun calls rerun after each debounced batch of relevant changes
// under targets, until ctx is done
func watchAndRerun(ctx context.Context, targets []string, logger *slog.Logger, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, target := range targets {
		if err := addWatchTarget(watcher, target); err != nil {
			return err
		}
	}
	logger.Info("watching for changes", "paths", watcher.WatchList())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// New directories are watched as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchTarget(watcher, event.Name)
					continue
				}
			}
			if !isRelevantChange(event) {
				continue
			}
			logger.Debug("file changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			rerun()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// addWatchTarget watches a directory tree, or the directory of a file
func addWatchTarget(watcher *fsnotify.Watcher, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(target))
	}

	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Ignore errors, continue walking
		}
		if !d.IsDir() {
			return nil
		}
		if path != target && skippedWatchDirs[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isRelevantChange reports whether an event can change a check result
func isRelevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".py", ".yaml", ".yml", ".toml", ".json":
		return true
	}
	return false
}
