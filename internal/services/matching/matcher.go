// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package matching maps candidates onto a wanted target: a whole directory
// group for album targets, or one file per wanted track otherwise.
package matching

import (
	"cmp"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/candidates"
	"github.com/soulseekarr/soulseekarr/internal/services/scoring"
	"github.com/soulseekarr/soulseekarr/internal/services/variants"
	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

const (
	DefaultMinAlbumFiles = 3
	DefaultMinTrackScore = 1
)

// Config controls match acceptance.
type Config struct {
	// MinAlbumFiles guards against a stray file being taken for an album.
	MinAlbumFiles int
	// MinTrackScore is the lowest score a file may have and still be
	// assigned to a wanted track.
	MinTrackScore int
	// AllowAnyAlbumDirectory accepts album groups whose path does not name
	// the wanted album.
	AllowAnyAlbumDirectory bool
}

// DefaultConfig returns the default acceptance thresholds.
func DefaultConfig() Config {
	return Config{
		MinAlbumFiles: DefaultMinAlbumFiles,
		MinTrackScore: DefaultMinTrackScore,
	}
}

// Assignment binds one wanted track to one candidate.
type Assignment struct {
	Track     models.WantedTrack
	Candidate *models.Candidate
	Score     int
}

// GroupMatch is the result of matching one directory group.
type GroupMatch struct {
	// Group is the directory group the files come from
	Group *models.DirectoryGroup

	// Files are the candidates to request, the whole group in album mode
	Files []*models.Candidate

	// Assignments holds the track bindings in wanted-track order (track mode only)
	Assignments []Assignment

	// Missing lists wanted tracks this group could not provide (track mode only)
	Missing []models.WantedTrack

	// Score is the album aggregate, or the sum of assignment scores
	Score int

	meanPenalty float64
}

// Peer returns the peer owning the group.
func (m *GroupMatch) Peer() string {
	return m.Group.Key.Peer
}

// Complete reports whether nothing wanted is missing.
func (m *GroupMatch) Complete() bool {
	return len(m.Missing) == 0
}

// Matcher matches candidate sets against targets.
type Matcher struct {
	cfg    Config
	scorer *scoring.Scorer
	filter *variants.Filter
}

// NewMatcher creates a new matcher.
func NewMatcher(cfg Config, scorer *scoring.Scorer, filter *variants.Filter) *Matcher {
	if cfg.MinAlbumFiles <= 0 {
		cfg.MinAlbumFiles = DefaultMinAlbumFiles
	}
	if cfg.MinTrackScore <= 0 {
		cfg.MinTrackScore = DefaultMinTrackScore
	}
	return &Matcher{cfg: cfg, scorer: scorer, filter: filter}
}

// Match returns every acceptable group match, best first. The caller takes
// the first and may walk down the list when a peer refuses the request.
func (m *Matcher) Match(set *candidates.Set, target models.WantedTarget) []*GroupMatch {
	if set == nil || len(set.Groups) == 0 {
		return nil
	}
	if target.IsAlbumMode() {
		return m.MatchAlbum(set, target)
	}
	return m.MatchTracks(set, target)
}

// MatchAlbum scores each directory group holding at least MinAlbumFiles
// files on lossless ratio, mean bitrate, file count and textual match.
func (m *Matcher) MatchAlbum(set *candidates.Set, target models.WantedTarget) []*GroupMatch {
	var matches []*GroupMatch

	for _, group := range set.Groups {
		if len(group.Candidates) < m.cfg.MinAlbumFiles {
			continue
		}
		if !m.cfg.AllowAnyAlbumDirectory && !groupNamesAlbum(group, target) {
			continue
		}

		penalty := 0
		for _, c := range group.Candidates {
			cl := m.filter.Apply(c, target, nil)
			c.Score = m.scorer.Score(c, target, nil, cl)
			penalty += cl.Penalty
		}

		match := &GroupMatch{
			Group:       group,
			Files:       slices.Clone(group.Candidates),
			meanPenalty: float64(penalty) / float64(len(group.Candidates)),
		}
		slices.SortFunc(match.Files, func(a, b *models.Candidate) int {
			return cmp.Compare(a.Path, b.Path)
		})
		match.Score = albumScore(group, target, match.meanPenalty)
		matches = append(matches, match)
	}

	slices.SortStableFunc(matches, compareAlbumMatches)

	if len(matches) > 0 {
		best := matches[0]
		log.Debug().
			Str("target", target.Label()).
			Str("peer", best.Peer()).
			Str("directory", best.Group.Key.Directory).
			Int("score", best.Score).
			Int("alternatives", len(matches)-1).
			Msg("Album match selected")
	}

	return matches
}

func groupNamesAlbum(group *models.DirectoryGroup, target models.WantedTarget) bool {
	if stringutils.ContainsName(pathcmp.ToSlash(group.Key.Directory), target.Album) {
		return true
	}
	if group.Release.Title != "" {
		return stringutils.NormalizeName(group.Release.Title) == stringutils.NormalizeName(target.Album)
	}
	return false
}

const (
	albumArtistBonus   = 10
	albumTitleBonus    = 10
	albumLosslessBonus = 40
	albumBitrateCap    = 10
)

func albumScore(group *models.DirectoryGroup, target models.WantedTarget, meanPenalty float64) int {
	dir := pathcmp.ToSlash(group.Key.Directory)
	score := 0
	if stringutils.ContainsName(dir, target.Artist) {
		score += albumArtistBonus
	}
	if stringutils.ContainsName(dir, target.Album) {
		score += albumTitleBonus
	}
	score += int(group.LosslessRatio() * albumLosslessBonus)
	score += len(group.Candidates)
	score += min(group.MeanBitRate()/32, albumBitrateCap)
	score -= int(meanPenalty)
	return score
}

func compareAlbumMatches(a, b *GroupMatch) int {
	return cmp.Or(
		cmp.Compare(b.Score, a.Score),
		cmp.Compare(a.meanPenalty, b.meanPenalty),
		cmp.Compare(b.Group.LosslessRatio(), a.Group.LosslessRatio()),
		cmp.Compare(b.Group.MeanBitRate(), a.Group.MeanBitRate()),
		cmp.Compare(b.Group.TotalSize(), a.Group.TotalSize()),
		cmp.Compare(a.Group.Key.Peer, b.Group.Key.Peer),
		cmp.Compare(a.Group.Key.Directory, b.Group.Key.Directory),
	)
}
