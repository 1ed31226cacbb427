package special

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FreePeak/db-copilot/internal/logger"
)

const reloadDebounce = 250 * time.Millisecond

// WatchUIActions reloads the registry whenever the override file changes
// and blocks until ctx is done. The parent directory is watched so that
// editors replacing the file by rename are picked up.
func WatchUIActions(ctx context.Context, path string, registry *UIActionRegistry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create ui actions watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("Error closing ui actions watcher: %v", err)
		}
	}()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("Watching %s for UI action changes", target)

	// a stopped timer whose channel fires once per burst of events
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("UI actions watcher error: %v", err)
		case <-timer.C:
			if err := registry.Reload(target); err != nil {
				logger.Warn("Keeping previous UI actions, reload failed: %v", err)
				continue
			}
			logger.Info("Reloaded UI actions from %s", target)
		}
	}
}
