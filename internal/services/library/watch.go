// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch invalidates cached listings when the library changes. It watches
// the root and every artist directory, picks up artist directories created
// later, and blocks until ctx is cancelled.
func (i *Index) Watch(ctx context.Context) error {
	if i.root == "" {
		return ErrNoRoot
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create library watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(i.root); err != nil {
		return fmt.Errorf("watch library root: %w", err)
	}
	entries, err := os.ReadDir(i.root)
	if err != nil {
		return fmt.Errorf("read library root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(i.root, e.Name())); err != nil {
				log.Debug().Err(err).Str("path", e.Name()).Msg("Failed to watch artist directory")
			}
		}
	}

	log.Info().Str("root", i.root).Msg("Watching library for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			i.handleEvent(w, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Library watcher error")
		}
	}
}

func (i *Index) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return
	}

	i.Invalidate(ev.Name)

	if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == i.root {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.Add(ev.Name); err != nil {
				log.Debug().Err(err).Str("path", ev.Name).Msg("Failed to watch new artist directory")
			}
		}
	}

	log.Trace().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Library listing invalidated")
}
