// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
)

const bytesPerMB = 1024 * 1024

// MatchState tracks a candidate through track matching.
type MatchState string

const (
	MatchStateUnmatched MatchState = "unmatched"
	MatchStateScored    MatchState = "scored"
	MatchStateAssigned  MatchState = "assigned"
	MatchStateRejected  MatchState = "rejected"
)

// matchTransitions is the single source of truth for legal match state moves.
var matchTransitions = map[MatchState]map[MatchState]struct{}{
	MatchStateUnmatched: {MatchStateScored: {}, MatchStateRejected: {}},
	MatchStateScored:    {MatchStateAssigned: {}, MatchStateRejected: {}},
}

// CanTransition reports whether moving from s to next is allowed.
// Assigned and Rejected are final.
func (s MatchState) CanTransition(next MatchState) bool {
	_, ok := matchTransitions[s][next]
	return ok
}

// ReleaseInfo is what could be parsed from a candidate's directory name.
type ReleaseInfo struct {
	Artist   string `json:"artist,omitempty"`
	Title    string `json:"title,omitempty"`
	Year     int    `json:"year,omitempty"`
	Source   string `json:"source,omitempty"`
	Remaster bool   `json:"remaster,omitempty"`
}

// GroupKey identifies a directory group: one parent directory on one peer.
type GroupKey struct {
	Peer      string
	Directory string
}

func (k GroupKey) String() string {
	return k.Peer + ":" + k.Directory
}

// Candidate is one remote file considered for download. Candidates belong
// to exactly one peer response and live for a single planning cycle.
type Candidate struct {
	Peer        string
	Path        string
	Directory   string
	Filename    string
	Size        int64
	BitRate     int
	SampleRate  int
	BitDepth    int
	Format      AudioFormat
	Release     ReleaseInfo
	HasFreeSlot bool
	UploadSpeed int

	VariantWanted bool
	VariantHits   int
	Penalty       int
	Score         int

	State MatchState
	Track *WantedTrack
}

// NewCandidate derives a candidate from a peer's remote file.
func NewCandidate(resp PeerResponse, file RemoteFile) *Candidate {
	dir, name := pathcmp.Split(file.Path)
	return &Candidate{
		Peer:        resp.Peer,
		Path:        file.Path,
		Directory:   dir,
		Filename:    name,
		Size:        file.Size,
		BitRate:     file.BitRate,
		SampleRate:  file.SampleRate,
		BitDepth:    file.BitDepth,
		Format:      FormatFromPath(file.Path),
		HasFreeSlot: resp.HasFreeSlot,
		UploadSpeed: resp.UploadSpeed,
		State:       MatchStateUnmatched,
	}
}

// GroupKey returns the directory group the candidate belongs to.
func (c *Candidate) GroupKey() GroupKey {
	return GroupKey{Peer: c.Peer, Directory: c.Directory}
}

// Stem is the file name without extension.
func (c *Candidate) Stem() string {
	return pathcmp.Stem(c.Filename)
}

// DirName is the last element of the candidate's directory.
func (c *Candidate) DirName() string {
	return pathcmp.Base(c.Directory)
}

// SizeMB returns the size in mebibytes.
func (c *Candidate) SizeMB() float64 {
	return float64(c.Size) / bytesPerMB
}

// Transition moves the candidate to next, reporting false when the move is
// not allowed from the current state.
func (c *Candidate) Transition(next MatchState) bool {
	if c.State == "" {
		c.State = MatchStateUnmatched
	}
	if !c.State.CanTransition(next) {
		return false
	}
	c.State = next
	return true
}

// DirectoryGroup is every candidate from one peer sharing a parent
// directory, the working stand-in for "one release".
type DirectoryGroup struct {
	Key        GroupKey
	Release    ReleaseInfo
	Candidates []*Candidate
}

// LosslessRatio is the share of files in the group that are lossless.
func (g *DirectoryGroup) LosslessRatio() float64 {
	if len(g.Candidates) == 0 {
		return 0
	}
	n := 0
	for _, c := range g.Candidates {
		if c.Format.IsLossless() {
			n++
		}
	}
	return float64(n) / float64(len(g.Candidates))
}

// MeanBitRate averages the reported bitrate of files that report one.
func (g *DirectoryGroup) MeanBitRate() int {
	sum, n := 0, 0
	for _, c := range g.Candidates {
		if c.BitRate > 0 {
			sum += c.BitRate
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// TotalSize sums the sizes of all files in the group.
func (g *DirectoryGroup) TotalSize() int64 {
	var total int64
	for _, c := range g.Candidates {
		total += c.Size
	}
	return total
}
