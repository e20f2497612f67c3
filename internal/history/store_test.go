// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulseekarr/soulseekarr/internal/database"
	"github.com/soulseekarr/soulseekarr/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func decision(artist, album string, reason models.Reason, at time.Time) models.Decision {
	return models.Decision{
		Target:    models.WantedTarget{Artist: artist, Album: album},
		Reason:    reason,
		DecidedAt: at,
	}
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	matched := decision("Portishead", "Dummy", models.ReasonMatched, base.Add(time.Hour))
	matched.Requests = []models.DownloadRequest{{
		Peer:     "peer",
		Accepted: true,
		Files:    []models.RequestedFile{{Path: `a\01 - Mysterons.flac`, Size: 10, Track: &models.WantedTrack{Title: "Mysterons"}}},
	}}

	require.NoError(t, store.Append(ctx, decision("Low", "Secret Name", models.ReasonNoCandidates, base)))
	require.NoError(t, store.Append(ctx, matched))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := entries[0].Decision
	assert.Equal(t, models.ReasonMatched, got.Reason)
	assert.Equal(t, "peer", got.Peer())
	assert.True(t, got.Queued())
	require.Len(t, got.Files(), 1)
	assert.Equal(t, "Mysterons", got.Files()[0].Track.Title)
	assert.True(t, got.DecidedAt.Equal(matched.DecidedAt))

	assert.Equal(t, models.ReasonNoCandidates, entries[1].Decision.Reason)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_ForTargetAndPrune(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, decision("Low", "Secret Name", models.ReasonNoCandidates, base)))
	require.NoError(t, store.Append(ctx, decision("Low", "Secret Name", models.ReasonMatched, base.Add(48*time.Hour))))
	require.NoError(t, store.Append(ctx, decision("Low", "Ones and Sixes", models.ReasonMatched, base.Add(time.Hour))))

	entries, err := store.ForTarget(ctx, "Low", "Secret Name", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ReasonMatched, entries[0].Decision.Reason)

	deleted, err := store.Prune(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	entries, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RejectsUnknownReason(t *testing.T) {
	store := newStore(t)
	err := store.Append(context.Background(), decision("A", "B", models.Reason("bogus"), time.Now()))
	require.Error(t, err)
}
