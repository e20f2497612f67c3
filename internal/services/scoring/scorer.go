// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scoring assigns candidates a deterministic desirability score.
// Scores depend only on the candidate, the target and the variant verdict.
package scoring

import (
	"regexp"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/variants"
	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// Weights are the score contributions of each signal.
type Weights struct {
	Lossless int

	Bitrate320 int
	Bitrate256 int
	Bitrate192 int
	BitrateLow int

	SizeReasonable int
	SizeTooSmall   int
	SizeTooLarge   int
	MinSizeMB      float64
	MaxSizeMB      float64

	Artist       int
	Album        int
	ReleaseTitle int
	TrackNumber  int
	Title        int
	OriginalMark int
	VariantMatch int
}

// DefaultWeights keeps the lossless bonus above the largest lossy bitrate
// bonus so format always dominates bitrate.
func DefaultWeights() Weights {
	return Weights{
		Lossless: 100,

		Bitrate320: 30,
		Bitrate256: 20,
		Bitrate192: 10,
		BitrateLow: -10,

		SizeReasonable: 10,
		SizeTooSmall:   -10,
		SizeTooLarge:   -5,
		MinSizeMB:      3,
		MaxSizeMB:      50,

		Artist:       15,
		Album:        15,
		ReleaseTitle: 5,
		TrackNumber:  10,
		Title:        15,
		OriginalMark: 20,
		VariantMatch: 25,
	}
}

var originalMarker = regexp.MustCompile(`(?i)\b(?:original|album|studio|single)\s+(?:version|mix|edit)\b|[\(\[]\s*original\s*[\)\]]`)

// Breakdown itemizes a score.
type Breakdown struct {
	Format  int
	Size    int
	Text    int
	Version int
	Penalty int
	Total   int
}

// Scorer computes scores with a fixed set of weights.
type Scorer struct {
	w Weights
}

// NewScorer returns a scorer using w.
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// NewDefaultScorer returns a scorer using DefaultWeights.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Score returns the total score of c for target, optionally for one wanted
// track, given the variant verdict.
func (s *Scorer) Score(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack, cl variants.Classification) int {
	return s.Explain(c, target, track, cl).Total
}

// Explain returns the itemized score. The variant penalty is subtracted last.
func (s *Scorer) Explain(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack, cl variants.Classification) Breakdown {
	var b Breakdown

	b.Format = s.formatScore(c)
	b.Size = s.sizeScore(c)
	b.Text = s.textScore(c, target, track)
	b.Version = s.versionScore(c, cl)
	b.Penalty = cl.Penalty

	b.Total = b.Format + b.Size + b.Text + b.Version
	b.Total -= b.Penalty
	return b
}

func (s *Scorer) formatScore(c *models.Candidate) int {
	if c.Format.IsLossless() {
		return s.w.Lossless
	}
	switch {
	case c.BitRate >= 320:
		return s.w.Bitrate320
	case c.BitRate >= 256:
		return s.w.Bitrate256
	case c.BitRate >= 192:
		return s.w.Bitrate192
	case c.BitRate > 0 && c.BitRate < 128:
		return s.w.BitrateLow
	default:
		return 0
	}
}

func (s *Scorer) sizeScore(c *models.Candidate) int {
	mb := c.SizeMB()
	switch {
	case mb < s.w.MinSizeMB:
		return s.w.SizeTooSmall
	case mb > s.w.MaxSizeMB:
		return s.w.SizeTooLarge
	default:
		return s.w.SizeReasonable
	}
}

func (s *Scorer) textScore(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack) int {
	score := 0
	path := pathcmp.ToSlash(c.Path)

	if stringutils.ContainsName(path, target.Artist) {
		score += s.w.Artist
	}
	if stringutils.ContainsName(path, target.Album) {
		score += s.w.Album
		if c.Release.Title != "" && stringutils.NormalizeName(c.Release.Title) == stringutils.NormalizeName(target.Album) {
			score += s.w.ReleaseTitle
		}
	}

	if track == nil {
		return score
	}

	if track.TrackNumber > 0 {
		disc, number, ok := stringutils.ParseTrackNumber(c.Stem())
		if ok && number == track.TrackNumber && (disc == 0 || track.DiscNumber == 0 || disc == track.DiscNumber) {
			score += s.w.TrackNumber
		}
	}
	if stringutils.TitleInName(c.Stem(), track.Title) {
		score += s.w.Title
	}
	return score
}

func (s *Scorer) versionScore(c *models.Candidate, cl variants.Classification) int {
	if cl.TargetRequestsVariant {
		if len(cl.Requested) > 0 {
			return s.w.VariantMatch
		}
		return 0
	}
	if originalMarker.MatchString(c.Stem()) || originalMarker.MatchString(c.DirName()) {
		return s.w.OriginalMark
	}
	return 0
}
