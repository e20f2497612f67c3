// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dedup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

const completedMaxDepth = 4

// CompletedFolder lists audio files below a local completed-downloads
// directory.
type CompletedFolder struct {
	root string
}

// NewCompletedFolder returns a lister for root. An empty root lists nothing.
func NewCompletedFolder(root string) *CompletedFolder {
	return &CompletedFolder{root: root}
}

// ListCompleted returns slash-separated paths of audio files relative to
// the root. A missing root is not an error.
func (f *CompletedFolder) ListCompleted(ctx context.Context) ([]string, error) {
	if f == nil || f.root == "" {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == f.root {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && strings.Count(rel, "/") >= completedMaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if models.IsAudioPath(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return files, nil
}

// completedIndex is a per-call snapshot of the completed folder.
type completedIndex struct {
	names nameSet
	dirs  map[string][]string
}

func newCompletedIndex(files []string) *completedIndex {
	idx := &completedIndex{names: newNameSet(), dirs: make(map[string][]string)}
	for _, f := range files {
		idx.names.add(f)
		dir := path.Dir(f)
		idx.dirs[dir] = append(idx.dirs[dir], f)
	}
	return idx
}

func (idx *completedIndex) hasFile(p string) bool {
	return idx.names.has(p)
}

// hasAlbum reports whether a folder named after the album holds at least
// minFiles audio files and names the artist, either in its path, in one of
// its file names, or by sharing minOverlap of the artist tokens.
func (idx *completedIndex) hasAlbum(artist, album string, minFiles int, minOverlap float64) bool {
	artistTokens := stringutils.Tokens(artist, 1)
	for dir, files := range idx.dirs {
		if dir == "." || len(files) < minFiles {
			continue
		}
		if !stringutils.ContainsName(path.Base(dir), album) {
			continue
		}
		if stringutils.ContainsName(dir, artist) ||
			stringutils.TokenOverlap(artistTokens, stringutils.Tokens(dir, 1)) >= minOverlap {
			return true
		}
		for _, f := range files {
			if stringutils.ContainsName(path.Base(f), artist) {
				return true
			}
		}
	}
	return false
}

// hasTrack reports whether a completed file names the track and sits
// under the artist or album, or shares enough tokens with artist and title.
func (idx *completedIndex) hasTrack(target models.WantedTarget, track models.WantedTrack, minOverlap float64) bool {
	want := stringutils.Tokens(target.Artist+" "+stringutils.CleanTitle(track.Title), 1)
	for dir, files := range idx.dirs {
		for _, f := range files {
			stem := strings.TrimSuffix(path.Base(f), path.Ext(f))
			if !stringutils.TitleInName(stem, track.Title) {
				continue
			}
			if stringutils.ContainsName(f, target.Artist) || stringutils.ContainsName(dir, target.Album) {
				return true
			}
			if stringutils.TokenOverlap(want, stringutils.Tokens(f, 1)) >= minOverlap {
				return true
			}
		}
	}
	return false
}
