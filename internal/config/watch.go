package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Debounce coalesces the burst of events an editor save produces.
var Debounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and hands every valid config to fn.
// Invalid edits are logged and skipped. The directory is watched rather than
// the file so that editors replacing the file by rename are seen too. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config watch: %w", err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("path", path).Msg("config watcher")
		case <-timer.C:
			c, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("ignoring invalid config edit")
				continue
			}
			log.Info().Str("path", path).Msg("config reloaded")
			fn(c)
		}
	}
}
