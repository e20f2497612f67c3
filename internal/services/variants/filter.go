// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package variants labels candidates that look like recording variants
// (remixes, live takes, edits, karaoke...) the caller did not ask for.
// It never excludes anything; it returns a penalty for scoring.
package variants

import (
	"slices"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

const (
	DefaultKeywordPenalty  = 20
	DefaultBracketPenalty  = 30
	DefaultRemasterPenalty = 5
)

// Config holds the penalties applied per unwanted variant signal.
type Config struct {
	KeywordPenalty int
	BracketPenalty int
	// RemasterPenalty applies when a candidate is marked remastered and the
	// target is not. Remasters do not count as variant hits. Set a negative
	// value to ignore remasters entirely.
	RemasterPenalty int
	// ExtraKeywords are operator-supplied phrases treated as variants.
	ExtraKeywords []string
}

// DefaultConfig returns the default penalties.
func DefaultConfig() Config {
	return Config{
		KeywordPenalty:  DefaultKeywordPenalty,
		BracketPenalty:  DefaultBracketPenalty,
		RemasterPenalty: DefaultRemasterPenalty,
	}
}

// Classification is the variant verdict for one candidate against one target.
type Classification struct {
	// Wanted is false when at least one unrequested variant was found.
	Wanted  bool
	Penalty int
	// Hits lists every unrequested variant signal found, keywords first.
	Hits []Family
	// Requested lists variant families present in the candidate that the
	// target itself asks for.
	Requested []Family
	Remaster  bool
	// TargetRequestsVariant is set when the target text carries any variant
	// keyword, e.g. the wanted title is "Song (Club Remix)".
	TargetRequestsVariant bool
}

// HitCount is the number of unrequested variant signals.
func (c Classification) HitCount() int {
	return len(c.Hits)
}

// Filter classifies candidates.
type Filter struct {
	cfg      Config
	families []keywordFamily
}

// NewFilter returns a filter using cfg; zero penalties fall back to defaults.
func NewFilter(cfg Config) *Filter {
	def := DefaultConfig()
	if cfg.KeywordPenalty <= 0 {
		cfg.KeywordPenalty = def.KeywordPenalty
	}
	if cfg.BracketPenalty <= 0 {
		cfg.BracketPenalty = def.BracketPenalty
	}

	families := slices.Clone(variantKeywords)
	if custom, ok := customFamily(cfg.ExtraKeywords); ok {
		families = append(families, custom)
	}

	return &Filter{cfg: cfg, families: families}
}

// targetText is the title the target asks for: the track title in track
// mode, the album title otherwise. The artist name never exempts a variant.
func targetText(target models.WantedTarget, track *models.WantedTrack) string {
	if track != nil {
		return track.Title
	}
	return target.Album
}

// candidateText is the directory name plus the file stem. In track mode a
// directory that is the wanted album's own folder is left out, so the album
// title cannot mark every track in it as a variant.
func candidateText(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack) string {
	dir := c.DirName()
	if track != nil && target.Album != "" && stringutils.ContainsName(dir, target.Album) {
		return c.Stem()
	}
	return dir + " " + c.Stem()
}

// Classify labels c against target, optionally narrowed to one wanted track.
func (f *Filter) Classify(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack) Classification {
	wantText := targetText(target, track)
	wantTokens := stringutils.Tokens(wantText, 1)
	haveText := candidateText(c, target, track)
	haveTokens := stringutils.Tokens(haveText, 1)

	requested := make(map[Family]bool)
	for _, kf := range f.families {
		if kf.matches(wantTokens) {
			requested[kf.family] = true
		}
	}
	for _, bp := range bracketPatterns {
		if bp.re.MatchString(wantText) {
			requested[bp.family] = true
		}
	}

	result := Classification{TargetRequestsVariant: len(requested) > 0}
	addRequested := func(family Family) {
		if !slices.Contains(result.Requested, family) {
			result.Requested = append(result.Requested, family)
		}
	}

	for _, kf := range f.families {
		if !kf.matches(haveTokens) {
			continue
		}
		if requested[kf.family] {
			addRequested(kf.family)
			continue
		}
		result.Hits = append(result.Hits, kf.family)
		result.Penalty += f.cfg.KeywordPenalty
	}

	for _, bp := range bracketPatterns {
		if !bp.re.MatchString(haveText) {
			continue
		}
		if requested[bp.family] {
			addRequested(bp.family)
			continue
		}
		result.Hits = append(result.Hits, bp.family)
		result.Penalty += f.cfg.BracketPenalty
	}

	if f.cfg.RemasterPenalty >= 0 && (hasRemaster(haveText) || c.Release.Remaster) && !hasRemaster(wantText) {
		result.Remaster = true
		result.Penalty += f.cfg.RemasterPenalty
	}

	result.Wanted = len(result.Hits) == 0
	return result
}

// Apply classifies c and records the verdict on it.
func (f *Filter) Apply(c *models.Candidate, target models.WantedTarget, track *models.WantedTrack) Classification {
	cl := f.Classify(c, target, track)
	c.VariantWanted = cl.Wanted
	c.VariantHits = cl.HitCount()
	c.Penalty = cl.Penalty
	return cl
}
