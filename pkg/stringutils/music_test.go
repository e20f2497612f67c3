// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase and trim", "  The Beatles ", "the beatles"},
		{"apostrophe", "Guns N' Roses", "guns n roses"},
		{"ampersand", "Simon & Garfunkel", "simon and garfunkel"},
		{"filesystem substitution underscore", "AC_DC", "ac dc"},
		{"filesystem substitution dash", "AC-DC", "ac dc"},
		{"diacritics", "Björk", "bjork"},
		{"ligature letters", "Sigur Rós - Ágætis byrjun", "sigur ros agaetis byrjun"},
		{"brackets collapse", "Song (Live) [2011]", "song live 2011"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestCompact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "trackname", Compact("Track_Name"))
	assert.Equal(t, "trackname", Compact("Track - Name"))
	assert.Equal(t, Compact("AC/DC"), Compact("AC_DC"))
}

func TestTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"the", "dark", "side", "of", "the", "moon"}, Tokens("The Dark Side of the Moon", 1))
	assert.Equal(t, []string{"dark", "side", "moon"}, Tokens("The Dark Side of the Moon", 4))
	assert.Empty(t, Tokens("", 1))
}

func TestTokenOverlap(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, TokenOverlap([]string{"a", "b"}, []string{"b", "a", "c"}), 0.001)
	assert.InDelta(t, 0.5, TokenOverlap([]string{"a", "b"}, []string{"a"}), 0.001)
	assert.InDelta(t, 0.0, TokenOverlap(nil, []string{"a"}), 0.001)
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"Song (feat. Someone)", "Song"},
		{"Song [ft. Someone Else]", "Song"},
		{"Song featuring Someone", "Song"},
		{"Song - Remastered 2011", "Song"},
		{"Song (2009 Remaster)", "Song"},
		{"Song (Club Remix)", "Song (Club Remix)"},
		{"Left Side Live", "Left Side Live"},
		{"Swift Song", "Swift Song"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CleanTitle(tt.input))
		})
	}
}

func TestParseTrackNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stem  string
		disc  int
		track int
		ok    bool
	}{
		{"01 Song A", 0, 1, true},
		{"02. Song B", 0, 2, true},
		{"03 - Song C", 0, 3, true},
		{"1-04 Song D", 1, 4, true},
		{"205 Song E", 2, 5, true},
		{"Artist - 07 - Song F", 0, 7, true},
		{"Song Without Number", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			t.Parallel()
			disc, track, ok := ParseTrackNumber(tt.stem)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.disc, disc)
			assert.Equal(t, tt.track, track)
		})
	}
}

func TestStripYearPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Album Y", StripYearPrefix("[2011] Album Y"))
	assert.Equal(t, "Album Y", StripYearPrefix("(1999) - Album Y"))
	assert.Equal(t, "Album Y", StripYearPrefix("Album Y"))
}

func TestTitleInName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		title    string
		expected bool
	}{
		{"exact with number", "01 Song A", "Song A", true},
		{"variant suffix still contains title", "02 Song B (Live)", "Song B", true},
		{"underscores", "03_Track_Name", "Track Name", true},
		{"joined words", "04 TrackName", "Track Name", true},
		{"prefix of longer word", "05 Song Alpha", "Song A", false},
		{"short title whole token", "06 Go", "Go", true},
		{"short title inside word", "07 Goes On", "Go", false},
		{"title starting with digits", "99 Luftballons", "99 Luftballons", true},
		{"featured credit ignored", "08 Lovers", "Lovers (feat. Someone)", true},
		{"small typo", "09 Teh Title Track", "The Title Track", true},
		{"different song", "10 Another One", "Song A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, TitleInName(tt.file, tt.title))
		})
	}
}

func TestContainsName(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsName(`music\Artist X\Album Y`, "Artist X"))
	assert.True(t, ContainsName("music/ArtistX/AlbumY", "Artist X"))
	assert.True(t, ContainsName("AC_DC - Back in Black", "AC/DC"))
	assert.False(t, ContainsName("music/Artist Xylophone", "Artist X"))
	assert.False(t, ContainsName("anything", "  "))
}

func TestNormalizer_Clear(t *testing.T) {
	t.Parallel()

	calls := 0
	normalizer := NewNormalizer(defaultNormalizerTTL, func(s string) string {
		calls++
		return s + "!"
	})

	assert.Equal(t, "a!", normalizer.Normalize("a"))
	assert.Equal(t, "a!", normalizer.Normalize("a"))
	assert.Equal(t, 1, calls)

	normalizer.Clear("a")
	assert.Equal(t, "a!", normalizer.Normalize("a"))
	assert.Equal(t, 2, calls)
}
