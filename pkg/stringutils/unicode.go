// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stringutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unicodeNormalizer = NewNormalizer(defaultNormalizerTTL, foldUnicodeInner)

var letterReplacer = strings.NewReplacer(
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ß", "ss",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "TH",
)

func foldUnicodeInner(s string) string {
	// NFKD does not decompose these to ASCII; they are distinct letters.
	s = letterReplacer.Replace(s)

	// transform.Chain is not safe for concurrent use, build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// FoldUnicode removes diacritics and decomposes ligatures.
//   - "Björk" → "Bjork"
//   - "Mötley Crüe" → "Motley Crue"
//   - "Sigur Rós" → "Sigur Ros"
func FoldUnicode(s string) string {
	return unicodeNormalizer.Normalize(s)
}
