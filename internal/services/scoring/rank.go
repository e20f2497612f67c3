// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scoring

import (
	"cmp"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

// Scored is a candidate together with a score computed for one wanted item.
// Track matching scores the same file against several tracks, so the score
// lives beside the candidate instead of on it.
type Scored struct {
	Candidate   *models.Candidate
	Score       int
	VariantHits int
}

// CompareScored orders options best first: higher score, fewer unwanted
// variant hits, higher bitrate, larger file, then peer and path so equal
// options never depend on iteration order.
func CompareScored(a, b Scored) int {
	return cmp.Or(
		cmp.Compare(b.Score, a.Score),
		cmp.Compare(a.VariantHits, b.VariantHits),
		cmp.Compare(b.Candidate.BitRate, a.Candidate.BitRate),
		cmp.Compare(b.Candidate.Size, a.Candidate.Size),
		cmp.Compare(a.Candidate.Peer, b.Candidate.Peer),
		cmp.Compare(a.Candidate.Path, b.Candidate.Path),
	)
}
