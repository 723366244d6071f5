package index

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

// DefaultDebounce is how long the watcher waits for a burst of source
// changes to settle before rebuilding.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc regenerates the output from the source tree. trigger is the
// source path (relative to the source root) of the last change seen.
type RebuildFunc func(ctx context.Context, trigger string) error

// Watch starts an fsnotify watcher on the CSV source root and calls rebuild
// once per burst of changes to .csv files until ctx is cancelled. Every
// compile regenerates the whole tree, so events are only coalesced, never
// applied one by one.
//
// New directories created at runtime are automatically added to the watch
// list. A failed rebuild is logged and the watcher keeps running.
func Watch(ctx context.Context, sourceRoot string, debounce time.Duration, logger *slog.Logger, rebuild RebuildFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, sourceRoot); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", sourceRoot))

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		trigger string
	)
	schedule := func(rel string) {
		trigger = rel
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Info("watcher: source changed, rebuilding", slog.String("trigger", trigger))
			if err := rebuild(ctx, trigger); err != nil {
				logger.Error("watcher: rebuild failed",
					slog.String("trigger", trigger), slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			rel, relErr := filepath.Rel(sourceRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if hiddenPath(rel) {
				continue
			}

			// New directories are watched and may already hold indexes.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					schedule(rel)
					continue
				}
			}

			// A removed or renamed directory counts too: its indexes are gone.
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && !strings.Contains(filepath.Base(absPath), ".") {
				schedule(rel)
				continue
			}

			if !strings.HasSuffix(absPath, ".csv") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: source event", slog.String("path", rel), slog.String("op", ev.Op.String()))
				schedule(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// hiddenPath reports whether any segment of rel starts with a dot. The
// source catalog never descends into such directories.
func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}
