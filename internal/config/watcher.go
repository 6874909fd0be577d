package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/logging"
)

// debounceDelay collapses the burst of filesystem events most editors
// produce for a single save into one reload.
const debounceDelay = 500 * time.Millisecond

// Watch watches the config file for changes and invokes onReload with each
// successfully loaded snapshot. A reload that fails to parse or validate is
// logged and dropped; the previous snapshot stays active.
//
// The parent directory is watched rather than the file itself because many
// editors (and provisioning tools) replace the file atomically, which would
// otherwise orphan the watch.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	logging.Info("Watching config file", zap.String("path", abs))

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// A fresh timer per event sidesteps the Reset race: if the old
			// timer already fired, its tick stays on the abandoned channel.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(debounceDelay)
			debounceC = debounce.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("File watcher error", zap.Error(err))

		case <-debounceC:
			debounce = nil
			debounceC = nil
			logging.Info("Config file changed, reloading", zap.String("path", abs))
			cfg, err := Load(abs)
			if err != nil {
				logging.Warn("Config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			logging.Info("Config reloaded",
				zap.Int("pages", len(cfg.Pages)),
			)
			onReload(cfg)
		}
	}
}
