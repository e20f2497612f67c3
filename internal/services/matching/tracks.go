// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matching

import (
	"cmp"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/candidates"
	"github.com/soulseekarr/soulseekarr/internal/services/scoring"
	"github.com/soulseekarr/soulseekarr/internal/services/variants"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// pair is a scored (track, candidate) option.
type pair struct {
	scoring.Scored
	track   int
	variant variants.Classification
}

// MatchTracks assigns wanted tracks to files, one directory group at a
// time. Within a group every (track, file) pair that names the track and
// clears MinTrackScore is scored, then pairs are taken best first so no
// file serves two tracks and no track gets two files. Tracks without an
// acceptable file stay missing.
func (m *Matcher) MatchTracks(set *candidates.Set, target models.WantedTarget) []*GroupMatch {
	var matches []*GroupMatch

	for _, group := range set.Groups {
		match := m.matchGroupTracks(group, target)
		if len(match.Assignments) == 0 {
			continue
		}
		matches = append(matches, match)
	}

	slices.SortStableFunc(matches, compareTrackMatches)

	if len(matches) > 0 {
		best := matches[0]
		log.Debug().
			Str("target", target.Label()).
			Str("peer", best.Peer()).
			Str("directory", best.Group.Key.Directory).
			Int("matched", len(best.Assignments)).
			Int("missing", len(best.Missing)).
			Int("score", best.Score).
			Msg("Track match selected")
	}

	return matches
}

func (m *Matcher) matchGroupTracks(group *models.DirectoryGroup, target models.WantedTarget) *GroupMatch {
	var pairs []pair

	for _, c := range group.Candidates {
		c.State = models.MatchStateUnmatched
		c.Track = nil
	}

	for i := range target.Tracks {
		track := &target.Tracks[i]
		for _, c := range group.Candidates {
			if !stringutils.TitleInName(c.Stem(), track.Title) {
				continue
			}
			cl := m.filter.Classify(c, target, track)
			score := m.scorer.Score(c, target, track, cl)
			if score < m.cfg.MinTrackScore {
				continue
			}
			if c.State == models.MatchStateUnmatched {
				c.Transition(models.MatchStateScored)
			}
			pairs = append(pairs, pair{
				Scored:  scoring.Scored{Candidate: c, Score: score, VariantHits: cl.HitCount()},
				track:   i,
				variant: cl,
			})
		}
	}

	slices.SortStableFunc(pairs, func(a, b pair) int {
		return cmp.Or(scoring.CompareScored(a.Scored, b.Scored), cmp.Compare(a.track, b.track))
	})

	assigned := make([]*Assignment, len(target.Tracks))
	for _, p := range pairs {
		c := p.Candidate
		if assigned[p.track] != nil || c.State == models.MatchStateAssigned {
			continue
		}
		if !c.Transition(models.MatchStateAssigned) {
			continue
		}
		track := target.Tracks[p.track]
		c.Track = &track
		c.Score = p.Score
		c.VariantHits = p.VariantHits
		c.VariantWanted = p.variant.Wanted
		c.Penalty = p.variant.Penalty
		assigned[p.track] = &Assignment{Track: track, Candidate: c, Score: p.Score}
	}

	for _, c := range group.Candidates {
		if c.State != models.MatchStateAssigned {
			c.Transition(models.MatchStateRejected)
		}
	}

	match := &GroupMatch{Group: group}
	for i, a := range assigned {
		if a == nil {
			match.Missing = append(match.Missing, target.Tracks[i])
			continue
		}
		match.Assignments = append(match.Assignments, *a)
		match.Files = append(match.Files, a.Candidate)
		match.Score += a.Score
	}
	return match
}

func compareTrackMatches(a, b *GroupMatch) int {
	return cmp.Or(
		cmp.Compare(len(b.Assignments), len(a.Assignments)),
		cmp.Compare(b.Score, a.Score),
		cmp.Compare(a.Group.Key.Peer, b.Group.Key.Peer),
		cmp.Compare(a.Group.Key.Directory, b.Group.Key.Directory),
	)
}
