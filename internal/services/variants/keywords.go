// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package variants

import (
	"regexp"
	"strings"

	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// Family groups keywords that describe the same kind of recording variant.
type Family string

const (
	FamilyRemix        Family = "remix"
	FamilyLive         Family = "live"
	FamilyAcoustic     Family = "acoustic"
	FamilyEdit         Family = "edit"
	FamilyDemo         Family = "demo"
	FamilyKaraoke      Family = "karaoke"
	FamilyInstrumental Family = "instrumental"
	FamilyCover        Family = "cover"
	FamilyMashup       Family = "mashup"
	FamilyAlternate    Family = "alternate"
	FamilyCustom       Family = "custom"
)

type keywordFamily struct {
	family  Family
	phrases [][]string
}

// variantKeywords is the curated keyword list. Phrases are matched as whole
// token runs of the normalized name, so "live" never matches "deliver".
//
// Edit these slices to add more variant keywords.
var variantKeywords = []keywordFamily{
	newKeywordFamily(FamilyRemix, "remix", "remixes", "remixed", "rmx", "rework", "bootleg", "club mix", "extended mix", "dub mix", "vip mix"),
	newKeywordFamily(FamilyLive, "live", "unplugged", "in concert"),
	newKeywordFamily(FamilyAcoustic, "acoustic"),
	newKeywordFamily(FamilyEdit, "radio edit", "single edit", "edit"),
	newKeywordFamily(FamilyDemo, "demo", "demos"),
	newKeywordFamily(FamilyKaraoke, "karaoke", "backing track"),
	newKeywordFamily(FamilyInstrumental, "instrumental"),
	newKeywordFamily(FamilyCover, "cover", "tribute"),
	newKeywordFamily(FamilyMashup, "mashup", "mash up"),
	newKeywordFamily(FamilyAlternate, "alternate", "alt take", "outtake", "rehearsal"),
}

func newKeywordFamily(family Family, phrases ...string) keywordFamily {
	kf := keywordFamily{family: family}
	for _, p := range phrases {
		if tokens := stringutils.Tokens(p, 1); len(tokens) > 0 {
			kf.phrases = append(kf.phrases, tokens)
		}
	}
	return kf
}

// matches reports whether any phrase of the family occurs in tokens.
func (kf keywordFamily) matches(tokens []string) bool {
	for _, phrase := range kf.phrases {
		if containsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}

type bracketPattern struct {
	family Family
	re     *regexp.Regexp
}

// bracketPatterns catch variant markers that keyword matching misses, such
// as "(Some Artist Mix)" or "[Club Dub]".
var bracketPatterns = []bracketPattern{
	{FamilyRemix, regexp.MustCompile(`(?i)[\(\[][^\)\]]*\b(?:re)?mix(?:es|ed)?\b[^\)\]]*[\)\]]`)},
	{FamilyRemix, regexp.MustCompile(`(?i)[\(\[][^\)\]]*\b(?:rmx|dub|vip)\b[^\)\]]*[\)\]]`)},
	{FamilyEdit, regexp.MustCompile(`(?i)[\(\[][^\)\]]*\bedit\b[^\)\]]*[\)\]]`)},
	{FamilyLive, regexp.MustCompile(`(?i)[\(\[][^\)\]]*\blive\b[^\)\]]*[\)\]]`)},
	{FamilyMashup, regexp.MustCompile(`(?i)\bvs\.?\s`)},
}

var remasterPattern = regexp.MustCompile(`(?i)\bremaster(?:ed)?\b`)

func hasRemaster(s string) bool {
	return remasterPattern.MatchString(s)
}

func customFamily(keywords []string) (keywordFamily, bool) {
	var phrases []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			phrases = append(phrases, k)
		}
	}
	if len(phrases) == 0 {
		return keywordFamily{}, false
	}
	return newKeywordFamily(FamilyCustom, phrases...), true
}
