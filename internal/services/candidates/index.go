// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package candidates flattens raw peer responses into uniform, validated
// file candidates grouped by peer and parent directory.
package candidates

import (
	"cmp"
	"slices"
	"strings"

	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

const (
	DefaultMinSizeBytes int64 = 1 << 20
	DefaultMaxSizeBytes int64 = 100 << 20
)

// Config controls which remote files become candidates.
type Config struct {
	AllowedFormats []models.AudioFormat
	MinSizeBytes   int64
	MaxSizeBytes   int64
	FilterExpr     string
}

// DefaultConfig returns the allow-list and size guards used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		AllowedFormats: slices.Clone(models.DefaultAllowedFormats),
		MinSizeBytes:   DefaultMinSizeBytes,
		MaxSizeBytes:   DefaultMaxSizeBytes,
	}
}

// BuildStats counts what happened to every remote file.
type BuildStats struct {
	Peers          int
	Files          int
	Kept           int
	DroppedInvalid int
	DroppedFormat  int
	DroppedSmall   int
	DroppedLarge   int
	DroppedFilter  int
}

// Set is the output of one build: every candidate plus its directory groups.
type Set struct {
	Candidates []*models.Candidate
	Groups     []*models.DirectoryGroup
	Stats      BuildStats

	byKey map[models.GroupKey]*models.DirectoryGroup
}

// Group returns the directory group for key, or nil.
func (s *Set) Group(key models.GroupKey) *models.DirectoryGroup {
	if s == nil {
		return nil
	}
	return s.byKey[key]
}

// Len returns the number of candidates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candidates)
}

// Index builds candidate sets from peer responses.
type Index struct {
	cfg      Config
	allowed  map[models.AudioFormat]struct{}
	filter   *vm.Program
	releases *ReleaseCache
}

// NewIndex validates cfg and compiles its filter expression.
func NewIndex(cfg Config) (*Index, error) {
	def := DefaultConfig()
	if len(cfg.AllowedFormats) == 0 {
		cfg.AllowedFormats = def.AllowedFormats
	}
	if cfg.MinSizeBytes <= 0 {
		cfg.MinSizeBytes = def.MinSizeBytes
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = def.MaxSizeBytes
	}

	program, err := CompileFilter(strings.TrimSpace(cfg.FilterExpr))
	if err != nil {
		return nil, err
	}

	allowed := make(map[models.AudioFormat]struct{}, len(cfg.AllowedFormats))
	for _, f := range cfg.AllowedFormats {
		allowed[f] = struct{}{}
	}

	return &Index{
		cfg:      cfg,
		allowed:  allowed,
		filter:   program,
		releases: NewReleaseCache(),
	}, nil
}

// Build turns peer responses into a candidate set. Files with no path or
// peer, a disallowed format, or a size outside the configured bounds are
// dropped; duplicate paths from the same peer are kept once.
func (i *Index) Build(responses []models.PeerResponse) *Set {
	set := &Set{byKey: make(map[models.GroupKey]*models.DirectoryGroup)}

	for _, resp := range responses {
		set.Stats.Peers++
		seen := make(map[string]struct{}, len(resp.Files))

		for _, file := range resp.Files {
			set.Stats.Files++

			if resp.Peer == "" || strings.TrimSpace(file.Path) == "" || file.Size < 0 {
				set.Stats.DroppedInvalid++
				continue
			}
			if _, dup := seen[file.Path]; dup {
				set.Stats.DroppedInvalid++
				continue
			}
			seen[file.Path] = struct{}{}

			c := models.NewCandidate(resp, file)
			if _, ok := i.allowed[c.Format]; !ok || c.Format == models.FormatUnknown {
				set.Stats.DroppedFormat++
				continue
			}
			if c.Size < i.cfg.MinSizeBytes {
				set.Stats.DroppedSmall++
				continue
			}
			if c.Size > i.cfg.MaxSizeBytes {
				set.Stats.DroppedLarge++
				continue
			}

			keep, err := runFilter(i.filter, c)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path).Msg("Failed to evaluate candidate filter")
			}
			if !keep {
				set.Stats.DroppedFilter++
				continue
			}

			c.Release = i.releases.Parse(c.DirName())
			set.Candidates = append(set.Candidates, c)

			key := c.GroupKey()
			group, ok := set.byKey[key]
			if !ok {
				group = &models.DirectoryGroup{Key: key, Release: c.Release}
				set.byKey[key] = group
				set.Groups = append(set.Groups, group)
			}
			group.Candidates = append(group.Candidates, c)
		}
	}

	slices.SortFunc(set.Groups, func(a, b *models.DirectoryGroup) int {
		return cmp.Or(cmp.Compare(a.Key.Peer, b.Key.Peer), cmp.Compare(a.Key.Directory, b.Key.Directory))
	})
	set.Stats.Kept = len(set.Candidates)

	log.Debug().
		Int("peers", set.Stats.Peers).
		Int("files", set.Stats.Files).
		Int("kept", set.Stats.Kept).
		Int("groups", len(set.Groups)).
		Int("dropped_format", set.Stats.DroppedFormat).
		Int("dropped_small", set.Stats.DroppedSmall).
		Int("dropped_large", set.Stats.DroppedLarge).
		Int("dropped_filter", set.Stats.DroppedFilter).
		Msg("Built candidate set")

	return set
}
