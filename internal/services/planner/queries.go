// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package planner

import (
	"strings"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

// AlbumQuery is the search text for a whole release: "Artist" "Album".
func AlbumQuery(target models.WantedTarget) string {
	return quote(target.Artist) + " " + quote(target.Album)
}

// TrackQuery is the search text for a single track: "Artist" "Title".
func TrackQuery(target models.WantedTarget, track models.WantedTrack) string {
	return quote(target.Artist) + " " + quote(track.Title)
}

func quote(s string) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, `"`, " ")), " ")
	return `"` + s + `"`
}
