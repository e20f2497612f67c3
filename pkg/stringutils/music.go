// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultTitleSimilarity is the edit-distance similarity floor used when a
// title is not literally contained in a file name.
const DefaultTitleSimilarity = 0.85

var (
	nameNormalizer    = NewNormalizer(defaultNormalizerTTL, normalizeNameInner)
	compactNormalizer = NewNormalizer(defaultNormalizerTTL, compactInner)

	featParen      = regexp.MustCompile(`(?i)\s*[\(\[](?:feat\.?|ft\.?|featuring|with)\s+[^\)\]]*[\)\]]`)
	featTail       = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)
	remasterParen  = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*remaster[^\)\]]*[\)\]]`)
	remasterTail   = regexp.MustCompile(`(?i)\s+-\s+[^-]*remaster.*$`)
	trackPrefix    = regexp.MustCompile(`^\s*(?:(\d)[-.](\d{1,2})|(\d{1,3}))(?:\s*[-._)]\s*|\s+)`)
	trackInfix     = regexp.MustCompile(`^.+?\s-\s(\d{1,3})\s*[-.]\s`)
	yearPrefix     = regexp.MustCompile(`^\s*[\[\(]\d{4}[\]\)]\s*[-.]?\s*`)
	apostropheLike = strings.NewReplacer("'", "", "’", "", "‘", "", "`", "")

	levenshtein = metrics.NewLevenshtein()
)

// normalizeNameInner folds unicode, lower-cases and collapses every run of
// punctuation, including the characters file systems substitute for
// reserved ones ("AC_DC", "AC-DC", "AC⁄DC"), into a single space.
func normalizeNameInner(s string) string {
	s = FoldUnicode(s)
	s = strings.ToLower(s)
	s = apostropheLike.Replace(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func compactInner(s string) string {
	return strings.ReplaceAll(NormalizeName(s), " ", "")
}

// NormalizeName returns the canonical comparison form of an artist, album,
// title or file name.
//   - "Guns N' Roses" → "guns n roses"
//   - "AC_DC" → "ac dc"
//   - "Simon & Garfunkel" → "simon and garfunkel"
func NormalizeName(s string) string {
	return nameNormalizer.Normalize(s)
}

// Compact is NormalizeName without any spaces, for containment checks that
// must survive "Track_Name" vs "Track Name" vs "TrackName".
func Compact(s string) string {
	return compactNormalizer.Normalize(s)
}

// Tokens splits the normalized form of s and keeps tokens of at least minLen runes.
func Tokens(s string, minLen int) []string {
	fields := strings.Fields(NormalizeName(s))
	if minLen <= 1 {
		return fields
	}
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minLen {
			out = append(out, f)
		}
	}
	return out
}

// TokenOverlap reports the fraction of want tokens present in have.
func TokenOverlap(want, have []string) float64 {
	if len(want) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	hits := 0
	for _, w := range want {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

// CleanTitle removes featured-artist credits and remaster annotations that
// catalogs add to titles but file names usually omit. Variant words such as
// "Remix" or "Live" are left alone.
func CleanTitle(title string) string {
	cleaned := featParen.ReplaceAllString(title, "")
	cleaned = featTail.ReplaceAllString(cleaned, "")
	cleaned = remasterParen.ReplaceAllString(cleaned, "")
	cleaned = remasterTail.ReplaceAllString(cleaned, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// StripYearPrefix drops a leading "[2011] " style prefix from folder names.
func StripYearPrefix(name string) string {
	return yearPrefix.ReplaceAllString(name, "")
}

// ParseTrackNumber extracts disc and track numbers from a file stem such as
// "01 - Title", "1-01 Title", "101 Title" or "Artist - 03 - Title".
// Disc is 0 when the name does not encode it.
func ParseTrackNumber(stem string) (disc, track int, ok bool) {
	if m := trackPrefix.FindStringSubmatch(stem); m != nil {
		if m[1] != "" {
			disc, _ = strconv.Atoi(m[1])
			track, _ = strconv.Atoi(m[2])
			return disc, track, track > 0
		}
		n, _ := strconv.Atoi(m[3])
		if n >= 100 {
			return n / 100, n % 100, n%100 > 0
		}
		return 0, n, n > 0
	}
	if m := trackInfix.FindStringSubmatch(stem); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 100 {
			return n / 100, n % 100, n%100 > 0
		}
		return 0, n, n > 0
	}
	return 0, 0, false
}

// StripTrackNumber removes a leading track number from a file stem.
func StripTrackNumber(stem string) string {
	if loc := trackPrefix.FindStringIndex(stem); loc != nil {
		return stem[loc[1]:]
	}
	return stem
}

// Similarity returns the normalized Levenshtein similarity of the
// normalized inputs, 1 meaning identical.
func Similarity(a, b string) float64 {
	return strutil.Similarity(NormalizeName(a), NormalizeName(b), levenshtein)
}

// ContainsName reports whether the compact form of needle occurs in
// haystack starting and ending on token boundaries, so "Track Name" finds
// "TrackName" but "Song A" does not find "Song Alpha".
func ContainsName(haystack, needle string) bool {
	needleCompact := Compact(needle)
	if needleCompact == "" {
		return false
	}

	starts := make(map[int]bool)
	ends := make(map[int]bool)
	var compact strings.Builder
	for _, tok := range strings.Fields(NormalizeName(haystack)) {
		starts[compact.Len()] = true
		compact.WriteString(tok)
		ends[compact.Len()] = true
	}

	text := compact.String()
	for offset := 0; offset <= len(text)-len(needleCompact); {
		idx := strings.Index(text[offset:], needleCompact)
		if idx < 0 {
			return false
		}
		start := offset + idx
		if starts[start] && ends[start+len(needleCompact)] {
			return true
		}
		offset = start + 1
	}
	return false
}

// TitleInName reports whether a wanted track title is present in a file
// name: as a token-aligned run of the name, or failing that by edit-distance
// similarity against the name with its track number removed.
func TitleInName(name, title string) bool {
	cleaned := CleanTitle(title)
	if Compact(cleaned) == "" {
		return false
	}

	if ContainsName(name, cleaned) {
		return true
	}

	return Similarity(StripTrackNumber(name), cleaned) >= DefaultTitleSimilarity
}
