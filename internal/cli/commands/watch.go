package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"go.uber.org/zap"
)

const watchDebounce = 100 * time.Millisecond

// modelFiles are the files of a model directory that affect generated SQL.
var modelFiles = map[string]bool{
	schema.ClassesCSVFile:  true,
	schema.ClassesYAMLFile: true,
	schema.SettingsFile:    true,
	schema.SamplesFile:     true,
}

// watchModel calls rebuild after changes to the model files in dir settle,
// until ctx is done. Rebuild errors are logged and watching continues.
func watchModel(ctx context.Context, dir string, logger *zap.Logger, rebuild func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !modelFiles[filepath.Base(event.Name)] {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			name := filepath.Base(event.Name)
			timer = time.AfterFunc(watchDebounce, func() {
				logger.Info("model changed", zap.String("file", name))
				if err := rebuild(); err != nil {
					logger.Error("regenerate failed", zap.Error(err))
				}
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
