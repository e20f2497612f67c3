// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dedup removes wanted content that is already owned, already
// queued or downloaded by the provider, or already sitting in the local
// completed-downloads folder.
package dedup

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

const (
	DefaultTokenOverlap  = 0.8
	DefaultMinAlbumFiles = 3
)

// OwnershipOracle answers whether content is in the user's library.
type OwnershipOracle interface {
	IsOwned(ctx context.Context, artist, album string, track *models.WantedTrack) (bool, error)
}

// TransferLister lists the provider's download queue, including finished
// transfers.
type TransferLister interface {
	ListTransfers(ctx context.Context) ([]models.Transfer, error)
}

// CompletedLister lists audio files in the local completed-downloads folder.
type CompletedLister interface {
	ListCompleted(ctx context.Context) ([]string, error)
}

// Config controls the gate's matching thresholds and failure policy.
type Config struct {
	// FailOpen treats content as not excluded when a source cannot be read.
	// Skipping a download is the only consequence here, so this is safe.
	FailOpen bool
	// TokenOverlap is the share of artist and title tokens a completed file
	// path must contain.
	TokenOverlap float64
	// MinAlbumFiles is the number of audio files a completed folder needs
	// to count as the album.
	MinAlbumFiles int
}

// DefaultConfig returns the default gate settings.
func DefaultConfig() Config {
	return Config{
		FailOpen:      true,
		TokenOverlap:  DefaultTokenOverlap,
		MinAlbumFiles: DefaultMinAlbumFiles,
	}
}

// Gate checks the three dedup sources. Every call reads the sources fresh;
// only the batch ledger is shared between calls.
type Gate struct {
	owned     OwnershipOracle
	transfers TransferLister
	completed CompletedLister
	ledger    *Ledger
	cfg       Config
}

// NewGate builds a gate. Any source may be nil, in which case it never
// excludes anything.
func NewGate(owned OwnershipOracle, transfers TransferLister, completed CompletedLister, ledger *Ledger, cfg Config) *Gate {
	if cfg.TokenOverlap <= 0 || cfg.TokenOverlap > 1 {
		cfg.TokenOverlap = DefaultTokenOverlap
	}
	if cfg.MinAlbumFiles <= 0 {
		cfg.MinAlbumFiles = DefaultMinAlbumFiles
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Gate{owned: owned, transfers: transfers, completed: completed, ledger: ledger, cfg: cfg}
}

// Ledger returns the batch ledger shared by every call on this gate.
func (g *Gate) Ledger() *Ledger {
	return g.ledger
}

// snapshot holds one read of the transfer queue and the completed folder.
type snapshot struct {
	transfers *transferIndex
	completed *completedIndex
	// degraded marks sources that could not be read
	transfersDegraded bool
	completedDegraded bool
}

func (g *Gate) snapshot(ctx context.Context) *snapshot {
	s := &snapshot{}

	var transfers []models.Transfer
	if g.transfers != nil {
		var err error
		transfers, err = g.transfers.ListTransfers(ctx)
		if err != nil {
			s.transfersDegraded = true
			log.Warn().Err(err).Bool("fail_open", g.cfg.FailOpen).Msg("Failed to list transfers for dedup")
		}
	}
	s.transfers = newTransferIndex(transfers, g.ledger)

	var files []string
	if g.completed != nil {
		var err error
		files, err = g.completed.ListCompleted(ctx)
		if err != nil {
			s.completedDegraded = true
			log.Warn().Err(err).Bool("fail_open", g.cfg.FailOpen).Msg("Failed to list completed downloads for dedup")
		}
	}
	s.completed = newCompletedIndex(files)

	return s
}

// isOwned consults the ownership oracle and applies the failure policy.
func (g *Gate) isOwned(ctx context.Context, artist, album string, track *models.WantedTrack) (owned, degraded bool) {
	if g.owned == nil {
		return false, false
	}
	owned, err := g.owned.IsOwned(ctx, artist, album, track)
	if err != nil {
		log.Warn().
			Err(err).
			Str("artist", artist).
			Str("album", album).
			Bool("fail_open", g.cfg.FailOpen).
			Msg("Failed to check ownership for dedup")
		return !g.cfg.FailOpen, true
	}
	return owned, false
}

// degradedDefault is the value a source that could not be read reports.
func (g *Gate) degradedDefault(degraded bool) bool {
	return degraded && !g.cfg.FailOpen
}

// TrackRecord is the dedup verdict for one wanted track.
type TrackRecord struct {
	Track  models.WantedTrack
	Record models.DedupRecord
}

// TargetResult is the pre-search verdict for a target.
type TargetResult struct {
	// Remaining is the target narrowed to what still needs fetching.
	Remaining models.WantedTarget
	// Album is the verdict for album targets.
	Album models.DedupRecord
	// Tracks holds the per-track verdicts of track targets, in order.
	Tracks []TrackRecord
	// Satisfied is true when nothing remains to fetch.
	Satisfied bool
}

// SatisfiedTracks lists the wanted tracks some source already covers.
func (r TargetResult) SatisfiedTracks() []models.WantedTrack {
	var out []models.WantedTrack
	for _, tr := range r.Tracks {
		if tr.Record.Satisfied() {
			out = append(out, tr.Track)
		}
	}
	return out
}

// FilterTarget runs before any search so fully satisfied targets cost no
// network traffic.
func (g *Gate) FilterTarget(ctx context.Context, target models.WantedTarget) TargetResult {
	snap := g.snapshot(ctx)
	result := TargetResult{Remaining: target}

	if target.IsAlbumMode() {
		owned, degraded := g.isOwned(ctx, target.Artist, target.Album, nil)
		result.Album = models.DedupRecord{
			Owned:     owned,
			Queued:    snap.transfers.hasAlbum(target.Artist, target.Album) || g.degradedDefault(snap.transfersDegraded),
			Completed: snap.completed.hasAlbum(target.Artist, target.Album, g.cfg.MinAlbumFiles, g.cfg.TokenOverlap) || g.degradedDefault(snap.completedDegraded),
			Degraded:  degraded || snap.transfersDegraded || snap.completedDegraded,
		}
		result.Satisfied = result.Album.Satisfied()
	} else {
		var remaining []models.WantedTrack
		for _, track := range target.Tracks {
			owned, degraded := g.isOwned(ctx, target.Artist, target.Album, &track)
			rec := models.DedupRecord{
				Owned:     owned,
				Queued:    snap.transfers.hasTrack(target, track) || g.degradedDefault(snap.transfersDegraded),
				Completed: snap.completed.hasTrack(target, track, g.cfg.TokenOverlap) || g.degradedDefault(snap.completedDegraded),
				Degraded:  degraded || snap.transfersDegraded || snap.completedDegraded,
			}
			result.Tracks = append(result.Tracks, TrackRecord{Track: track, Record: rec})
			if !rec.Satisfied() {
				remaining = append(remaining, track)
			}
		}
		result.Remaining = target.WithTracks(remaining)
		result.Satisfied = len(remaining) == 0
	}

	log.Debug().
		Str("target", target.Label()).
		Bool("satisfied", result.Satisfied).
		Int("remaining_tracks", len(result.Remaining.Tracks)).
		Msg("Dedup pre-search check")

	return result
}

// DroppedFile is a matched file the gate removed.
type DroppedFile struct {
	Candidate *models.Candidate
	Record    models.DedupRecord
}

// FileResult is the post-match verdict.
type FileResult struct {
	Survivors []*models.Candidate
	Dropped   []DroppedFile
}

// FilterFiles runs after matching so stale matches are not acted on. A
// file is dropped when a blocking transfer or a completed file has the same
// normalized folder and name, or when the album or its assigned track is
// now owned.
func (g *Gate) FilterFiles(ctx context.Context, target models.WantedTarget, files []*models.Candidate) FileResult {
	snap := g.snapshot(ctx)
	var result FileResult

	var albumOwned, albumDegraded bool
	if target.IsAlbumMode() {
		albumOwned, albumDegraded = g.isOwned(ctx, target.Artist, target.Album, nil)
	}

	for _, c := range files {
		rec := models.DedupRecord{
			Owned:     albumOwned,
			Queued:    snap.transfers.hasFile(c.Path) || g.degradedDefault(snap.transfersDegraded),
			Completed: snap.completed.hasFile(c.Path) || g.degradedDefault(snap.completedDegraded),
			Degraded:  albumDegraded || snap.transfersDegraded || snap.completedDegraded,
		}
		if c.Track != nil && !rec.Owned {
			owned, degraded := g.isOwned(ctx, target.Artist, target.Album, c.Track)
			rec.Owned = owned
			rec.Degraded = rec.Degraded || degraded
		}

		if rec.Satisfied() {
			result.Dropped = append(result.Dropped, DroppedFile{Candidate: c, Record: rec})
			continue
		}
		result.Survivors = append(result.Survivors, c)
	}

	if len(result.Dropped) > 0 {
		log.Debug().
			Str("target", target.Label()).
			Int("dropped", len(result.Dropped)).
			Int("survivors", len(result.Survivors)).
			Msg("Dedup post-match check removed files")
	}

	return result
}

// Protected answers whether a collaborator may delete an album. Unlike the
// download checks it fails closed: if ownership cannot be determined the
// album is treated as protected.
func (g *Gate) Protected(ctx context.Context, artist, album string) bool {
	if g.owned == nil {
		return true
	}
	owned, err := g.owned.IsOwned(ctx, artist, album, nil)
	if err != nil {
		log.Warn().Err(err).Str("artist", artist).Str("album", album).Msg("Failed to check ownership, treating album as protected")
		return true
	}
	return owned
}
