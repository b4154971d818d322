package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads the configuration file when it changes on disk.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	onChange []func(*Config)

	cancel context.CancelFunc
	done   chan struct{}
}

// WatchConfig starts watching path. The containing directory is watched so
// editors that replace the file on save are handled.
func WatchConfig(path string, debounce time.Duration, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cw := &ConfigWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  w,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go cw.loop(ctx)
	return cw, nil
}

// OnChange registers a callback for successfully reloaded configurations.
func (cw *ConfigWatcher) OnChange(cb func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.onChange = append(cw.onChange, cb)
}

func (cw *ConfigWatcher) loop(ctx context.Context) {
	defer close(cw.done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cw.schedule()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (cw *ConfigWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, cw.reload)
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		cw.logger.Warn("config reload rejected", "path", cw.path, "error", err)
		return
	}
	cw.logger.Info("config reloaded", "path", cw.path)

	cw.mu.Lock()
	callbacks := append([]func(*Config){}, cw.onChange...)
	cw.mu.Unlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Close stops the watcher.
func (cw *ConfigWatcher) Close() error {
	cw.cancel()
	err := cw.watcher.Close()
	<-cw.done

	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	return err
}
