// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dedup

import (
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
	"github.com/soulseekarr/soulseekarr/pkg/stringutils"
)

// fileKey hashes the normalized parent folder and base name of a local or
// remote path, so "Album_Y/01_Song_A.FLAC" and "Album Y/01 Song A.flac"
// collide on purpose while "01 Intro.flac" of two albums does not.
func fileKey(p string) uint64 {
	return xxhash.Sum64String(stringutils.NormalizeName(pathcmp.DirName(p)) + "\x00" + stringutils.NormalizeName(pathcmp.Base(p)))
}

// bareKey hashes the normalized base name only.
func bareKey(p string) uint64 {
	return xxhash.Sum64String(stringutils.NormalizeName(pathcmp.Base(p)))
}

// nameSet matches files by folder and name. Entries recorded without a
// parent folder, such as files dropped at the root of the completed
// folder, match any folder by name alone.
type nameSet struct {
	keyed map[uint64]struct{}
	bare  map[uint64]struct{}
}

func newNameSet() nameSet {
	return nameSet{keyed: make(map[uint64]struct{}), bare: make(map[uint64]struct{})}
}

func (s nameSet) add(p string) {
	if pathcmp.DirName(p) == "" {
		s.bare[bareKey(p)] = struct{}{}
		return
	}
	s.keyed[fileKey(p)] = struct{}{}
}

func (s nameSet) remove(p string) {
	if pathcmp.DirName(p) == "" {
		delete(s.bare, bareKey(p))
		return
	}
	delete(s.keyed, fileKey(p))
}

func (s nameSet) has(p string) bool {
	if _, ok := s.bare[bareKey(p)]; ok {
		return true
	}
	_, ok := s.keyed[fileKey(p)]
	return ok
}

// Ledger remembers files requested during one batch run. The provider's
// transfer list can lag behind a request that was just accepted, so
// targets processed later in the same batch consult the ledger as well.
type Ledger struct {
	mu    sync.RWMutex
	names nameSet
	paths []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{names: newNameSet()}
}

// Add records requested remote paths.
func (l *Ledger) Add(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range paths {
		l.names.add(p)
		l.paths = append(l.paths, pathcmp.ToSlash(p))
	}
}

// Has reports whether a file with the same normalized name was requested.
func (l *Ledger) Has(p string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.names.has(p)
}

// Claim records p unless a file with the same folder and name is already
// recorded, and reports whether it did. Checking and recording happen under
// one lock, so two concurrent targets never both claim the same file.
func (l *Ledger) Claim(p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.names.has(p) {
		return false
	}
	l.names.add(p)
	l.paths = append(l.paths, pathcmp.ToSlash(p))
	return true
}

// Release forgets paths recorded by Claim, for requests the sink refused.
func (l *Ledger) Release(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range paths {
		l.names.remove(p)
		slashed := pathcmp.ToSlash(p)
		if i := slices.Index(l.paths, slashed); i >= 0 {
			l.paths = slices.Delete(l.paths, i, i+1)
		}
	}
}

// Paths returns a copy of every recorded path.
func (l *Ledger) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.paths...)
}

// Reset forgets everything. Call it between batch runs.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = newNameSet()
	l.paths = nil
}
