// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package library answers ownership questions against a local music
// library laid out as <root>/<Artist>/<[YYYY] Album>/<NN - Title>.<ext>.
package library

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

const defaultListingTTL = 5 * time.Minute

// ErrNoRoot is returned when the library root is not configured.
var ErrNoRoot = errors.New("library root is not configured")

type entry struct {
	name string
	dir  bool
}

// Index is a filesystem-backed ownership oracle. Directory listings are
// cached and invalidated by Invalidate or by Watch.
type Index struct {
	root     string
	listings *ttlcache.Cache[string, []entry]
}

// New returns an index over root.
func New(root string) *Index {
	return &Index{
		root: root,
		listings: ttlcache.New(ttlcache.Options[string, []entry]{}.
			SetDefaultTTL(defaultListingTTL)),
	}
}

// Root returns the library root directory.
func (i *Index) Root() string {
	return i.root
}

// IsOwned reports whether the album, or the given track of it, exists in
// the library. Names are compared after folding case, diacritics,
// punctuation and filesystem-safe substitutions.
func (i *Index) IsOwned(ctx context.Context, artist, album string, track *models.WantedTrack) (bool, error) {
	if i.root == "" {
		return false, ErrNoRoot
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	artistDir, ok, err := i.findChild(i.root, artist, identity)
	if err != nil || !ok {
		return false, err
	}
	albumDir, ok, err := i.findChild(artistDir, album, stringutils.StripYearPrefix)
	if err != nil || !ok {
		return false, err
	}

	files, err := i.audioFiles(albumDir)
	if err != nil {
		return false, err
	}
	if track == nil {
		return len(files) > 0, nil
	}

	for _, f := range files {
		stem := f[:len(f)-len(filepath.Ext(f))]
		if stringutils.TitleInName(stem, track.Title) {
			return true, nil
		}
	}
	return false, nil
}

func identity(s string) string { return s }

// findChild returns the subdirectory of dir that best names want.
func (i *Index) findChild(dir, want string, clean func(string) string) (string, bool, error) {
	entries, err := i.list(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && dir != i.root {
			return "", false, nil
		}
		return "", false, err
	}

	var names []string
	for _, e := range entries {
		if e.dir {
			names = append(names, e.name)
		}
	}

	name, ok := bestName(names, want, clean)
	if !ok {
		return "", false, nil
	}
	return filepath.Join(dir, name), true, nil
}

// bestName picks the directory name that matches want: an exact compact
// match first, then the closest name that is either very similar or
// contains want plus only decoration such as years and edition words.
func bestName(names []string, want string, clean func(string) string) (string, bool) {
	wantCompact := stringutils.Compact(want)
	if wantCompact == "" {
		return "", false
	}

	for _, name := range names {
		if stringutils.Compact(clean(name)) == wantCompact {
			return name, true
		}
	}

	type option struct {
		name string
		rank int
		sim  float64
	}
	var options []option
	wantNorm := stringutils.NormalizeName(want)

	for _, name := range names {
		cleaned := clean(name)
		nameNorm := stringutils.NormalizeName(cleaned)
		sim := stringutils.Similarity(cleaned, want)

		rank := -1
		if fuzzy.MatchNormalizedFold(wantNorm, nameNorm) {
			rank = fuzzy.RankMatchNormalizedFold(wantNorm, nameNorm)
		}

		switch {
		case sim >= stringutils.DefaultTitleSimilarity:
		case rank >= 0 && stringutils.ContainsName(cleaned, want) && onlyDecoration(cleaned, want):
		default:
			continue
		}
		options = append(options, option{name: name, rank: rank, sim: sim})
	}

	if len(options) == 0 {
		return "", false
	}
	slices.SortFunc(options, func(a, b option) int {
		return cmp.Or(cmp.Compare(b.sim, a.sim), cmp.Compare(a.rank, b.rank), cmp.Compare(a.name, b.name))
	})
	return options[0].name, true
}

var decorationTokens = map[string]struct{}{
	"the": {}, "deluxe": {}, "edition": {}, "expanded": {}, "remaster": {}, "remastered": {},
	"anniversary": {}, "bonus": {}, "tracks": {}, "version": {}, "special": {}, "limited": {},
	"flac": {}, "mp3": {}, "320": {}, "v0": {}, "cd": {}, "web": {}, "vinyl": {}, "digital": {},
	"us": {}, "uk": {}, "jp": {}, "ep": {}, "lp": {}, "single": {},
}

// onlyDecoration reports whether every token name adds to want is a year,
// an edition word or a format tag.
func onlyDecoration(name, want string) bool {
	wantTokens := make(map[string]struct{})
	for _, t := range stringutils.Tokens(want, 1) {
		wantTokens[t] = struct{}{}
	}
	for _, t := range stringutils.Tokens(name, 1) {
		if _, ok := wantTokens[t]; ok {
			continue
		}
		if _, ok := decorationTokens[t]; ok {
			continue
		}
		if len(t) == 4 {
			if year, err := strconv.Atoi(t); err == nil && year >= 1900 && year <= 2100 {
				continue
			}
		}
		return false
	}
	return true
}

// audioFiles lists audio files of an album directory and of its direct
// subdirectories ("CD1", "Disc 2").
func (i *Index) audioFiles(albumDir string) ([]string, error) {
	entries, err := i.list(albumDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.dir {
			if models.IsAudioPath(e.name) {
				files = append(files, e.name)
			}
			continue
		}
		sub, err := i.list(filepath.Join(albumDir, e.name))
		if err != nil {
			continue
		}
		for _, s := range sub {
			if !s.dir && models.IsAudioPath(s.name) {
				files = append(files, s.name)
			}
		}
	}
	return files, nil
}

func (i *Index) list(dir string) ([]entry, error) {
	if cached, ok := i.listings.Get(dir); ok {
		return cached, nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read library directory %s: %w", dir, err)
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		isDir := d.IsDir()
		if d.Type()&os.ModeSymlink != 0 {
			if info, statErr := os.Stat(filepath.Join(dir, d.Name())); statErr == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, entry{name: d.Name(), dir: isDir})
	}

	i.listings.Set(dir, entries, ttlcache.DefaultTTL)
	return entries, nil
}

// Invalidate drops cached listings of p and its parent.
func (i *Index) Invalidate(p string) {
	i.listings.Delete(p)
	i.listings.Delete(filepath.Dir(p))
}
