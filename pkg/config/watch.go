package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bastiangx/permsearch/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events an editor save produces.
const debounce = 75 * time.Millisecond

// Watch reloads the config at configPath whenever it changes and hands the
// result to onChange, until ctx is done. The parent directory is watched so
// files replaced by rename are picked up too.
//
// onChange runs on the watcher goroutine.
func Watch(ctx context.Context, configPath string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	target := utils.GetAbsolutePath(configPath)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	log.Debugf("Watching config file: %s", target)

	go func() {
		defer w.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					pending = time.After(debounce)
				}
			case <-pending:
				pending = nil
				if !utils.FileExists(target) {
					continue
				}
				config, err := LoadConfig(target)
				if err != nil {
					log.Warnf("Failed to reload config %s: %v", target, err)
					continue
				}
				log.Debugf("Reloaded config from %s", target)
				onChange(config)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("Config watcher error: %v", err)
			}
		}
	}()
	return nil
}
