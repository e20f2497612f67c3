// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dedup

import (
	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// transferIndex is a per-call snapshot of transfers that block requeueing.
// Failed, cancelled and timed out transfers are left out so they can be
// retried.
type transferIndex struct {
	names nameSet
	paths []string
}

func newTransferIndex(transfers []models.Transfer, ledger *Ledger) *transferIndex {
	idx := &transferIndex{names: newNameSet()}
	for _, t := range transfers {
		if !t.State.BlocksRequeue() {
			continue
		}
		idx.names.add(t.Filename)
		idx.paths = append(idx.paths, pathcmp.ToSlash(t.Filename))
	}
	if ledger != nil {
		for _, p := range ledger.Paths() {
			idx.names.add(p)
			idx.paths = append(idx.paths, p)
		}
	}
	return idx
}

// hasFile reports whether a file with the same normalized name is queued,
// in progress or completed.
func (idx *transferIndex) hasFile(p string) bool {
	return idx.names.has(p)
}

// hasAlbum reports whether any blocking transfer sits in a directory named
// after the album, under a path that also names the artist.
func (idx *transferIndex) hasAlbum(artist, album string) bool {
	for _, p := range idx.paths {
		dir := pathcmp.Dir(p)
		if stringutils.ContainsName(pathcmp.Base(dir), album) && stringutils.ContainsName(dir, artist) {
			return true
		}
	}
	return false
}

// hasTrack reports whether a blocking transfer looks like the wanted track
// of this artist or album.
func (idx *transferIndex) hasTrack(target models.WantedTarget, track models.WantedTrack) bool {
	for _, p := range idx.paths {
		if !stringutils.TitleInName(pathcmp.Stem(p), track.Title) {
			continue
		}
		dir := pathcmp.Dir(p)
		if stringutils.ContainsName(dir, target.Artist) || stringutils.ContainsName(dir, target.Album) {
			return true
		}
	}
	return false
}
