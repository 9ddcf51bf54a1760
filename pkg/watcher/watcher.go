// Package watcher reloads the config file when it changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDuration is the default debounce window.
const DefaultDebounceDuration = 250 * time.Millisecond

// ConfigWatcher watches a single file and calls OnChange once per burst of
// writes. Editors often replace a file with rename+create, so the parent
// directory is watched and events are filtered by name.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher
}

// NewConfigWatcher creates a watcher for path. If debounce is 0,
// DefaultDebounceDuration is used.
func NewConfigWatcher(path string, debounce time.Duration, onChange func()) (*ConfigWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if debounce == 0 {
		debounce = DefaultDebounceDuration
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &ConfigWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  w,
	}, nil
}

// Run dispatches change notifications until ctx is cancelled.
func (c *ConfigWatcher) Run(ctx context.Context) {
	defer c.watcher.Close()

	// Stopped timer; armed on the first relevant event.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != c.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(c.debounce)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: config watcher: %v", err)
		case <-timer.C:
			c.onChange()
		}
	}
}

// Path returns the absolute path being watched.
func (c *ConfigWatcher) Path() string {
	return c.path
}
