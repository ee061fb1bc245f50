package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Zuo-Peng/tavern-chat/internal/scan"
)

const watchDebounce = 500 * time.Millisecond

// Watch re-runs IndexAll whenever a chat file under root changes, until ctx
// is cancelled. onRun, if set, receives the result of every run.
// The root and every character directory are watched; new character
// directories are picked up as they appear.
func Watch(ctx context.Context, db *DB, root string, opts Options, onRun func(Stats, error)) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	chars, err := scan.Characters(root)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	for _, c := range chars {
		if err := watcher.Add(filepath.Join(root, c)); err != nil {
			logger.Warn("watch failed", "dir", c, "error", err)
		}
	}
	logger.Info("watching chats", "root", root, "characters", len(chars))

	// a single timer coalesces bursts of writes into one run
	trigger := make(chan struct{}, 1)
	timer := time.AfterFunc(time.Hour, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && filepath.Dir(event.Name) == filepath.Clean(root) {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("watch failed", "dir", event.Name, "error", err)
				}
				timer.Reset(watchDebounce)
				continue
			}
			if filepath.Ext(event.Name) != scan.ChatExt {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.Debug("chat changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-trigger:
			stats, err := IndexAll(ctx, db, root, opts)
			if err != nil {
				logger.Warn("reindex failed", "error", err)
			} else {
				logger.Info("reindexed", "stats", stats.String())
			}
			if onRun != nil {
				onRun(stats, err)
			}
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
