// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package targets

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/pkg/debounce"
)

// DefaultSettleDelay is how long the wanted list must stay untouched
// before a change is reported. Editors save in several steps.
const DefaultSettleDelay = 2 * time.Second

// Watch calls onChange after the targets file was written, replaced or
// removed and then left alone for settle. It watches the parent directory
// so atomic saves through a rename are seen. Watch blocks until ctx is done.
func (s FileSource) Watch(ctx context.Context, settle time.Duration, onChange func()) error {
	if s.Path == "" {
		return ErrNoPath
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return fmt.Errorf("resolve targets path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create targets watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch targets directory: %w", err)
	}

	d := debounce.New(settle)
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Trace().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Targets file event")
			d.Do(func() {
				log.Info().Str("path", abs).Msg("Wanted list changed")
				onChange()
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Targets watcher error")
		}
	}
}
