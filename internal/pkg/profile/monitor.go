package profile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gethiox/orbitrat/internal/pkg/logger"
	"go.uber.org/zap"
)

// Watch signals every time the profile file is written or replaced.
// The parent directory is watched since editors usually save through a rename.
func Watch(ctx context.Context, path string) (<-chan bool, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher failed: %w", err)
	}

	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching \"%s\" failed: %w", filepath.Dir(path), err)
	}

	var change = make(chan bool)
	target := filepath.Clean(path)

	go func() {
		<-ctx.Done()
		err := watcher.Close()
		if err != nil {
			log.Info(fmt.Sprintf("closing watcher failed: %v", err), logger.Debug)
		}
	}()

	go func() {
		defer close(change)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				log.Info("profile change detected", zap.String("file", event.Name), logger.Info)
				select {
				case change <- true:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Info(fmt.Sprintf("watcher error: %v", err), logger.Warning)
			}
		}
	}()

	return change, nil
}
