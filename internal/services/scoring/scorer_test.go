// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scoring

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/variants"
)

const mb = 1 << 20

var target = models.WantedTarget{
	Artist: "Artist X",
	Album:  "Album Y",
	Tracks: []models.WantedTrack{{Title: "Song A", TrackNumber: 1}, {Title: "Song B", TrackNumber: 2}},
}

func candidate(peer, path string, size int64, bitrate int) *models.Candidate {
	return models.NewCandidate(models.PeerResponse{Peer: peer}, models.RemoteFile{Path: path, Size: size, BitRate: bitrate})
}

func TestScorer_Breakdown(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	w := DefaultWeights()
	track := &target.Tracks[0]

	c := candidate("peer-a", `music\Artist X\Album Y\01 Song A.flac`, 35*mb, 0)
	b := s.Explain(c, target, track, variants.Classification{Wanted: true})

	assert.Equal(t, w.Lossless, b.Format)
	assert.Equal(t, w.SizeReasonable, b.Size)
	assert.Equal(t, w.Artist+w.Album+w.TrackNumber+w.Title, b.Text)
	assert.Zero(t, b.Version)
	assert.Equal(t, b.Format+b.Size+b.Text, b.Total)
	assert.Equal(t, b.Total, s.Score(c, target, track, variants.Classification{Wanted: true}))
}

func TestScorer_BitrateTiers(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	w := DefaultWeights()

	tests := []struct {
		bitrate  int
		expected int
	}{
		{320, w.Bitrate320},
		{256, w.Bitrate256},
		{192, w.Bitrate192},
		{160, 0},
		{96, w.BitrateLow},
		{0, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dkbps", tt.bitrate), func(t *testing.T) {
			t.Parallel()
			c := candidate("peer-a", "x/y/z.mp3", 8*mb, tt.bitrate)
			assert.Equal(t, tt.expected, s.Explain(c, target, nil, variants.Classification{}).Format)
		})
	}
}

func TestScorer_SizeOutliers(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	w := DefaultWeights()

	assert.Equal(t, w.SizeTooSmall, s.Explain(candidate("p", "a/b.mp3", 2*mb, 320), target, nil, variants.Classification{}).Size)
	assert.Equal(t, w.SizeReasonable, s.Explain(candidate("p", "a/b.mp3", 3*mb, 320), target, nil, variants.Classification{}).Size)
	assert.Equal(t, w.SizeTooLarge, s.Explain(candidate("p", "a/b.flac", 80*mb, 0), target, nil, variants.Classification{}).Size)
}

func TestScorer_LosslessBeatsIdenticalLossy(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	track := &target.Tracks[0]

	for _, bitrate := range []int{0, 128, 192, 256, 320, 500} {
		for _, size := range []int64{2 * mb, 10 * mb, 60 * mb} {
			lossless := candidate("peer-a", `Artist X\Album Y\01 Song A.flac`, size, bitrate)
			for _, ext := range []string{"mp3", "m4a", "ogg", "opus"} {
				lossy := candidate("peer-a", `Artist X\Album Y\01 Song A.`+ext, size, bitrate)
				assert.Greater(t,
					s.Score(lossless, target, track, variants.Classification{}),
					s.Score(lossy, target, track, variants.Classification{}),
					"bitrate=%d size=%d ext=%s", bitrate, size, ext)
			}
		}
	}
}

func TestScorer_VariantPenaltyLowersScore(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	f := variants.NewFilter(variants.DefaultConfig())
	track := &target.Tracks[1]

	clean := candidate("peer-a", `Artist X\Album Y\02 Song B.mp3`, 6*mb, 192)
	live := candidate("peer-a", `Artist X\Album Y\02 Song B (Live).mp3`, 6*mb, 192)

	cleanScore := s.Score(clean, target, track, f.Classify(clean, target, track))
	liveScore := s.Score(live, target, track, f.Classify(live, target, track))
	assert.Greater(t, cleanScore, liveScore)

	wantLive := &models.WantedTrack{Title: "Song B (Live)", TrackNumber: 2}
	liveForLive := s.Score(live, target, wantLive, f.Classify(live, target, wantLive))
	assert.Greater(t, liveForLive, liveScore)
}

func TestScorer_VersionSignals(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	w := DefaultWeights()

	original := candidate("peer-a", `Artist X\Album Y\01 Song A (Original Mix).mp3`, 8*mb, 320)
	assert.Equal(t, w.OriginalMark, s.Explain(original, target, nil, variants.Classification{}).Version)

	requested := variants.Classification{TargetRequestsVariant: true, Requested: []variants.Family{variants.FamilyRemix}}
	assert.Equal(t, w.VariantMatch, s.Explain(original, target, nil, requested).Version)

	missing := variants.Classification{TargetRequestsVariant: true}
	assert.Zero(t, s.Explain(original, target, nil, missing).Version)
}

func TestScorer_DiscAwareTrackNumber(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	w := DefaultWeights()
	track := &models.WantedTrack{Title: "Song C", TrackNumber: 3, DiscNumber: 2}

	right := candidate("p", `Artist X\Album Y\2-03 Song C.flac`, 30*mb, 0)
	wrong := candidate("p", `Artist X\Album Y\1-03 Song C.flac`, 30*mb, 0)

	diff := s.Explain(right, target, track, variants.Classification{}).Text - s.Explain(wrong, target, track, variants.Classification{}).Text
	assert.Equal(t, w.TrackNumber, diff)
}

func TestScorer_Deterministic(t *testing.T) {
	t.Parallel()

	s := NewDefaultScorer()
	c := candidate("peer-a", `Artist X\Album Y\01 Song A.flac`, 35*mb, 0)
	first := s.Score(c, target, &target.Tracks[0], variants.Classification{Penalty: 7})
	for range 50 {
		require.Equal(t, first, s.Score(c, target, &target.Tracks[0], variants.Classification{Penalty: 7}))
	}
}

func TestCompareScored_TieBreaks(t *testing.T) {
	t.Parallel()

	mk := func(peer, path string, score, hits, bitrate int, size int64) Scored {
		return Scored{Candidate: candidate(peer, path, size, bitrate), Score: score, VariantHits: hits}
	}

	best := mk("peer-z", "z/1.mp3", 100, 0, 320, 8*mb)
	fewerHits := mk("peer-z", "z/2.mp3", 90, 0, 256, 8*mb)
	moreHits := mk("peer-a", "a/2.mp3", 90, 1, 320, 9*mb)
	lowerBitrate := mk("peer-a", "a/3.mp3", 80, 0, 192, 9*mb)
	higherBitrate := mk("peer-a", "a/4.mp3", 80, 0, 256, 5*mb)
	smaller := mk("peer-a", "a/5.mp3", 70, 0, 256, 5*mb)
	larger := mk("peer-b", "b/5.mp3", 70, 0, 256, 6*mb)
	peerA := mk("peer-a", "a/6.mp3", 60, 0, 256, 5*mb)
	peerB := mk("peer-b", "a/6.mp3", 60, 0, 256, 5*mb)

	got := []Scored{peerB, smaller, lowerBitrate, moreHits, best, peerA, larger, higherBitrate, fewerHits}
	slices.SortStableFunc(got, CompareScored)

	assert.Equal(t, []Scored{best, fewerHits, moreHits, higherBitrate, lowerBitrate, larger, smaller, peerA, peerB}, got)
}
