// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package targets reads the wanted list from a YAML file.
//
//	targets:
//	  - artist: Portishead
//	    album: Dummy
//	  - artist: Low
//	    album: Secret Name
//	    tracks:
//	      - title: Starfire
//	        track: 2
package targets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// ErrNoPath is returned by a FileSource without a path.
var ErrNoPath = errors.New("targets file path is required")

type document struct {
	Targets []models.WantedTarget `yaml:"targets"`
}

// Parse decodes a targets document. Targets naming the same artist and
// album are merged; their track lists are combined without duplicates.
// Invalid targets are kept so the planner can report them.
func Parse(data []byte) ([]models.WantedTarget, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}

	var out []models.WantedTarget
	index := make(map[string]int)

	for _, t := range doc.Targets {
		key := stringutils.NormalizeName(t.Artist) + "\x00" + stringutils.NormalizeName(t.Album)
		i, seen := index[key]
		if !seen || t.Validate() != nil {
			index[key] = len(out)
			out = append(out, t)
			continue
		}

		existing := out[i]
		// an album-mode entry wants everything, which subsumes track lists
		if existing.IsAlbumMode() || t.IsAlbumMode() {
			out[i] = existing.WithTracks(nil)
			continue
		}
		merged := existing.Tracks
		for _, track := range t.Tracks {
			if !containsTrack(merged, track) {
				merged = append(merged, track)
			}
		}
		out[i] = existing.WithTracks(merged)
		log.Debug().Str("target", t.Label()).Msg("Merged duplicate target")
	}

	return out, nil
}

func containsTrack(tracks []models.WantedTrack, track models.WantedTrack) bool {
	for _, t := range tracks {
		if stringutils.NormalizeName(t.Title) == stringutils.NormalizeName(track.Title) {
			return true
		}
	}
	return false
}

// FileSource reads the wanted list from a file each time it is asked, so
// edits take effect on the next cycle.
type FileSource struct {
	Path string
}

// Wanted returns the current wanted list.
func (s FileSource) Wanted(ctx context.Context) ([]models.WantedTarget, error) {
	if s.Path == "" {
		return nil, ErrNoPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	targets, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	log.Debug().Str("path", s.Path).Int("targets", len(targets)).Msg("Loaded wanted targets")
	return targets, nil
}
