package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads Config from disk when the on-disk workspace config file
// changes, so tool-policy overrides (allowed bins, domain scope) apply
// without a restart. Grounded on the teacher's plugin.Loader fsnotify
// watch loop (infrastructure/plugin/loader.go): watch the containing
// directory rather than the file itself, since editors replace files by
// rename rather than writing in place, and fsnotify loses a watch on a
// renamed-away file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   *zap.Logger
	onChange func(*Config)
}

// NewWatcher watches the directory containing path and reloads
// configuration via Load whenever path itself is written or recreated.
// Returns (nil, nil) if path does not exist — hot-reload is opt-in by
// dropping a local config.yaml into the workspace.
func NewWatcher(path string, onChange func(*Config), logger *zap.Logger) (*Watcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watching %s: %w", dir, err)
	}

	return &Watcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		logger:   logger,
		onChange: onChange,
	}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cfg, err := Load()
	if err != nil {
		w.logger.Warn("config: reload failed, keeping previous configuration",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("config: reloaded after file change", zap.String("path", w.path))
	w.onChange(cfg)
}

// Close stops the watch loop and releases the underlying inotify/kqueue
// handle.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
