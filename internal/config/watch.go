package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce collapses editor save bursts into one reload.
const defaultDebounce = 250 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Reload re-reads the config; it runs after each settled change.
	Reload   func() (Config, error)
	OnChange func(Config)
	OnError  func(error)
	Debounce time.Duration
}

// Watch reloads the config at path whenever it changes, until ctx ends.
// The parent directory is watched so atomic rename saves are seen.
func Watch(ctx context.Context, path string, opts WatchOptions) error {
	if opts.Reload == nil || opts.OnChange == nil {
		return fmt.Errorf("watch config: reload and change callbacks are required")
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := EnsureConfigDir(absPath); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	name := filepath.Base(absPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.OnError(fmt.Errorf("config watcher: %w", err))
		case <-timer.C:
			cfg, err := opts.Reload()
			if err != nil {
				opts.OnError(fmt.Errorf("reload config: %w", err))
				continue
			}
			opts.OnChange(cfg)
		}
	}
}
