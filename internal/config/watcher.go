// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/bodytrack/coachd/internal/log"
)

// Reloadable is implemented by any component that exposes a
// retrieve_configurations hook (spec.md §5's "optional config-refresh
// task").
type Reloadable interface {
	ReloadConfig(path string) error
}

// Watcher reloads path and notifies every registered Reloadable when
// the file changes. It does not poll: no task acts on
// tasks.retrieve_configuration_minutes.
type Watcher struct {
	path       string
	components []Reloadable
}

func NewWatcher(path string, components ...Reloadable) *Watcher {
	return &Watcher{path: path, components: components}
}

// Run blocks, watching path until ctx is canceled. It is meant to be
// launched in its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		return err
	}

	logger := log.WithComponent("config-watcher")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				logger.Error().Err(err).Msg("config reload failed, keeping previous configuration")
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Reload re-reads path and notifies every registered component,
// satisfying api.Reloader for the /refresh/configurations route as
// well as the fsnotify-driven path above.
func (w *Watcher) Reload() error {
	if _, err := Load(w.path); err != nil {
		return fmt.Errorf("config: reload %s: %w", w.path, err)
	}
	for _, c := range w.components {
		if err := c.ReloadConfig(w.path); err != nil {
			return fmt.Errorf("config: component rejected reloaded configuration: %w", err)
		}
	}
	log.WithComponent("config-watcher").Info().Str("path", w.path).Msg("configuration reloaded")
	return nil
}
