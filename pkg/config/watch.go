package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch watches the directory containing path and calls onChange whenever
// a write or create event lands on that exact file, until ctx is canceled. Errors
// from the watcher itself are logged and do not stop the watch, mirroring
// spec.md §4.10's "picked up on the next loop iteration without a
// restart" requirement: a failed reload leaves the previous in-memory
// document in place.
func Watch(ctx context.Context, logger zerolog.Logger, path string, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := onChange(); err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("config reload failed, keeping previous value")
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Str("path", path).Msg("config watcher error")

			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}
