// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTargetArtistRequired = errors.New("target artist is required")
	ErrTargetAlbumRequired  = errors.New("target album is required")
	ErrTrackTitleRequired   = errors.New("track title is required")
)

// WantedTrack is one track of a wanted release. It has no identity beyond
// its position in the owning WantedTarget.
type WantedTrack struct {
	Title       string `json:"title" yaml:"title"`
	TrackNumber int    `json:"trackNumber,omitempty" yaml:"track"`
	DiscNumber  int    `json:"discNumber,omitempty" yaml:"disc"`
}

// Label renders the track the way it would usually be named on disk.
func (t WantedTrack) Label() string {
	switch {
	case t.DiscNumber > 0 && t.TrackNumber > 0:
		return fmt.Sprintf("%d-%02d %s", t.DiscNumber, t.TrackNumber, t.Title)
	case t.TrackNumber > 0:
		return fmt.Sprintf("%02d %s", t.TrackNumber, t.Title)
	default:
		return t.Title
	}
}

// WantedTarget is an artist/album, optionally narrowed to specific tracks.
// It is treated as immutable for the duration of one planning cycle.
type WantedTarget struct {
	Artist string        `json:"artist" yaml:"artist"`
	Album  string        `json:"album" yaml:"album"`
	Tracks []WantedTrack `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

// IsAlbumMode reports whether the whole release is wanted.
func (t WantedTarget) IsAlbumMode() bool {
	return len(t.Tracks) == 0
}

// Label returns "Artist - Album" for logging.
func (t WantedTarget) Label() string {
	return t.Artist + " - " + t.Album
}

// WithTracks returns a copy of t narrowed to tracks.
func (t WantedTarget) WithTracks(tracks []WantedTrack) WantedTarget {
	out := t
	out.Tracks = append([]WantedTrack(nil), tracks...)
	return out
}

// Validate checks the fields needed to build queries and match files.
func (t WantedTarget) Validate() error {
	if strings.TrimSpace(t.Artist) == "" {
		return ErrTargetArtistRequired
	}
	if strings.TrimSpace(t.Album) == "" {
		return ErrTargetAlbumRequired
	}
	for i, track := range t.Tracks {
		if strings.TrimSpace(track.Title) == "" {
			return fmt.Errorf("track %d: %w", i+1, ErrTrackTitleRequired)
		}
	}
	return nil
}
