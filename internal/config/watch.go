package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
)

// WatchPolicy reloads the policy at path whenever the file is written or
// replaced and hands it to onChange. A reload that fails to parse or validate
// is logged and skipped. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so editors that save
// by renaming a temp file over path keep triggering reloads.
func WatchPolicy(ctx context.Context, path string, onChange func(analytics.Policy)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	slog.Info("watching risk policy", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			p, err := LoadPolicy(path)
			if err != nil {
				slog.Error("policy reload failed, keeping previous policy", "path", path, "error", err)
				continue
			}

			slog.Info("policy reloaded", "path", path)
			onChange(p)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("policy watcher error", "path", path, "error", err)
		}
	}
}
