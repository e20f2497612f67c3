// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dedup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

type fakeOwned struct {
	mu    sync.Mutex
	owned map[string]bool
	err   error
	calls int
}

func ownedKey(artist, album string, track *models.WantedTrack) string {
	if track == nil {
		return artist + "|" + album
	}
	return artist + "|" + album + "|" + track.Title
}

func (f *fakeOwned) IsOwned(_ context.Context, artist, album string, track *models.WantedTrack) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.owned[ownedKey(artist, album, track)], nil
}

type fakeTransfers struct {
	transfers []models.Transfer
	err       error
	calls     int
}

func (f *fakeTransfers) ListTransfers(context.Context) ([]models.Transfer, error) {
	f.calls++
	return f.transfers, f.err
}

type fakeCompleted struct {
	files []string
	err   error
}

func (f *fakeCompleted) ListCompleted(context.Context) ([]string, error) {
	return f.files, f.err
}

var target = models.WantedTarget{
	Artist: "Artist X",
	Album:  "Album Y",
	Tracks: []models.WantedTrack{
		{Title: "Song A", TrackNumber: 1},
		{Title: "Song B", TrackNumber: 2},
		{Title: "Song C", TrackNumber: 3},
	},
}

func candidate(path string, track *models.WantedTrack) *models.Candidate {
	c := models.NewCandidate(models.PeerResponse{Peer: "peer-a"}, models.RemoteFile{Path: path, Size: 30 << 20})
	c.Track = track
	return c
}

func TestGate_FilterTargetTracks(t *testing.T) {
	t.Parallel()

	owned := &fakeOwned{owned: map[string]bool{ownedKey("Artist X", "Album Y", &target.Tracks[0]): true}}
	transfers := &fakeTransfers{transfers: []models.Transfer{
		{Peer: "peer-z", Filename: `@@music\Artist X\Album Y\02 Song B.flac`, State: models.TransferStateInProgress},
		{Peer: "peer-z", Filename: `@@music\Artist X\Album Y\03 Song C.flac`, State: models.TransferStateFailed},
	}}

	g := NewGate(owned, transfers, &fakeCompleted{}, nil, DefaultConfig())
	res := g.FilterTarget(context.Background(), target)

	require.Len(t, res.Tracks, 3)
	assert.True(t, res.Tracks[0].Record.Owned)
	assert.True(t, res.Tracks[1].Record.Queued)
	assert.False(t, res.Tracks[2].Record.Satisfied(), "failed transfers do not block a retry")
	assert.False(t, res.Satisfied)
	assert.Equal(t, []models.WantedTrack{target.Tracks[2]}, res.Remaining.Tracks)
	assert.Equal(t, []models.WantedTrack{target.Tracks[0], target.Tracks[1]}, res.SatisfiedTracks())
}

func TestGate_FilterTargetCompletedTransferBlocks(t *testing.T) {
	t.Parallel()

	transfers := &fakeTransfers{transfers: []models.Transfer{
		{Filename: `@@music\Artist X\Album Y\01 Song A.flac`, State: models.TransferStateCompleted},
		{Filename: `@@music\Artist X\Album Y\02 Song B.flac`, State: models.TransferStateCancelled},
		{Filename: `@@music\Artist X\Album Y\03 Song C.flac`, State: models.TransferStateTimedOut},
	}}

	g := NewGate(nil, transfers, nil, nil, DefaultConfig())
	res := g.FilterTarget(context.Background(), target)

	assert.True(t, res.Tracks[0].Record.Queued)
	assert.False(t, res.Tracks[1].Record.Queued)
	assert.False(t, res.Tracks[2].Record.Queued)
}

func TestGate_FilterTargetAlbum(t *testing.T) {
	t.Parallel()

	album := models.WantedTarget{Artist: "Artist X", Album: "Album Y"}

	t.Run("owned", func(t *testing.T) {
		t.Parallel()
		g := NewGate(&fakeOwned{owned: map[string]bool{"Artist X|Album Y": true}}, nil, nil, nil, DefaultConfig())
		res := g.FilterTarget(context.Background(), album)
		assert.True(t, res.Satisfied)
		assert.True(t, res.Album.Owned)
	})

	t.Run("queued", func(t *testing.T) {
		t.Parallel()
		transfers := &fakeTransfers{transfers: []models.Transfer{
			{Filename: `share\Artist X\Album Y (2011)\04 Song D.mp3`, State: models.TransferStateQueued},
		}}
		res := NewGate(nil, transfers, nil, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.True(t, res.Album.Queued)
	})

	t.Run("queued album of another artist does not count", func(t *testing.T) {
		t.Parallel()
		transfers := &fakeTransfers{transfers: []models.Transfer{
			{Filename: `share\Somebody\Album Y\04 Song D.mp3`, State: models.TransferStateQueued},
		}}
		res := NewGate(nil, transfers, nil, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.False(t, res.Satisfied)
	})

	t.Run("completed folder", func(t *testing.T) {
		t.Parallel()
		completed := &fakeCompleted{files: []string{
			"Artist X - Album Y/01 Song A.flac",
			"Artist X - Album Y/02 Song B.flac",
			"Artist X - Album Y/03 Song C.flac",
		}}
		res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.True(t, res.Album.Completed)
	})

	t.Run("completed album of another artist does not count", func(t *testing.T) {
		t.Parallel()
		completed := &fakeCompleted{files: []string{
			"Somebody - Album Y/01 Song A.flac",
			"Somebody - Album Y/02 Song B.flac",
			"Somebody - Album Y/03 Song C.flac",
		}}
		res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.False(t, res.Album.Completed)
		assert.False(t, res.Satisfied)
	})

	t.Run("completed folder nested under the artist", func(t *testing.T) {
		t.Parallel()
		completed := &fakeCompleted{files: []string{
			"Artist X/Album Y/01 Song A.flac",
			"Artist X/Album Y/02 Song B.flac",
			"Artist X/Album Y/03 Song C.flac",
		}}
		res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.True(t, res.Album.Completed)
	})

	t.Run("completed folder whose files name the artist", func(t *testing.T) {
		t.Parallel()
		completed := &fakeCompleted{files: []string{
			"Album Y/Artist X - 01 - Song A.flac",
			"Album Y/Artist X - 02 - Song B.flac",
			"Album Y/Artist X - 03 - Song C.flac",
		}}
		res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.True(t, res.Album.Completed)
	})

	t.Run("completed folder with too few files", func(t *testing.T) {
		t.Parallel()
		completed := &fakeCompleted{files: []string{"Album Y/01 Song A.flac"}}
		res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), album)
		assert.False(t, res.Satisfied)
	})
}

func TestGate_FilterTargetCompletedTrack(t *testing.T) {
	t.Parallel()

	completed := &fakeCompleted{files: []string{
		"Album Y/01 Song A.flac",
		"Other Album/02 Song B.mp3",
		"Artist X - Song C.mp3",
	}}
	res := NewGate(nil, nil, completed, nil, DefaultConfig()).FilterTarget(context.Background(), target)

	assert.True(t, res.Tracks[0].Record.Completed, "folder names the album")
	assert.False(t, res.Tracks[1].Record.Completed, "same title from an unrelated folder")
	assert.True(t, res.Tracks[2].Record.Completed, "file names the artist")
}

func TestGate_FilterFiles(t *testing.T) {
	t.Parallel()

	owned := &fakeOwned{owned: map[string]bool{ownedKey("Artist X", "Album Y", &target.Tracks[2]): true}}
	transfers := &fakeTransfers{transfers: []models.Transfer{
		{Filename: `other\Album_Y\01_Song_A.FLAC`, State: models.TransferStateQueued},
		{Filename: `other\path\02 Song B.flac`, State: models.TransferStateFailed},
	}}
	g := NewGate(owned, transfers, nil, nil, DefaultConfig())

	files := []*models.Candidate{
		candidate(`music\Artist X\Album Y\01 Song A.flac`, &target.Tracks[0]),
		candidate(`music\Artist X\Album Y\02 Song B.flac`, &target.Tracks[1]),
		candidate(`music\Artist X\Album Y\03 Song C.flac`, &target.Tracks[2]),
	}
	res := g.FilterFiles(context.Background(), target, files)

	require.Len(t, res.Survivors, 1)
	assert.Equal(t, "02 Song B.flac", res.Survivors[0].Filename)
	require.Len(t, res.Dropped, 2)
	assert.True(t, res.Dropped[0].Record.Queued)
	assert.True(t, res.Dropped[1].Record.Owned)
}

func TestGate_FilterFilesSameNameFromAnotherAlbum(t *testing.T) {
	t.Parallel()

	transfers := &fakeTransfers{transfers: []models.Transfer{
		{Filename: `share\Somebody\Other Album Intro.flac`, State: models.TransferStateQueued},
	}}
	completed := &fakeCompleted{files: []string{
		"Third Album/02 Outro.flac",
		"03 Interlude.flac",
	}}
	g := NewGate(nil, transfers, completed, nil, DefaultConfig())

	album := models.WantedTarget{Artist: "Artist X", Album: "Album Y"}
	res := g.FilterFiles(context.Background(), album, []*models.Candidate{
		candidate(`music\Artist X\Album Y\01 Intro.flac`, nil),
		candidate(`music\Artist X\Album Y\02 Outro.flac`, nil),
		candidate(`music\Artist X\Album Y\03 Interlude.flac`, nil),
	})

	require.Len(t, res.Survivors, 2)
	assert.Equal(t, "01 Intro.flac", res.Survivors[0].Filename)
	assert.Equal(t, "02 Outro.flac", res.Survivors[1].Filename)
	require.Len(t, res.Dropped, 1)
	assert.True(t, res.Dropped[0].Record.Completed, "a file at the completed root matches by name")
}

func TestGate_FilterFilesAlbumOwned(t *testing.T) {
	t.Parallel()

	album := models.WantedTarget{Artist: "Artist X", Album: "Album Y"}
	g := NewGate(&fakeOwned{owned: map[string]bool{"Artist X|Album Y": true}}, nil, nil, nil, DefaultConfig())

	res := g.FilterFiles(context.Background(), album, []*models.Candidate{
		candidate(`Album Y\01 Song A.flac`, nil),
		candidate(`Album Y\02 Song B.flac`, nil),
	})
	assert.Empty(t, res.Survivors)
	assert.Len(t, res.Dropped, 2)
}

func TestGate_LedgerBlocksWithinBatch(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	g := NewGate(nil, &fakeTransfers{}, nil, ledger, DefaultConfig())
	files := []*models.Candidate{candidate(`music\Artist X\Album Y\01 Song A.flac`, &target.Tracks[0])}

	assert.Len(t, g.FilterFiles(context.Background(), target, files).Survivors, 1)

	g.Ledger().Add(`music\Artist X\Album Y\01 Song A.flac`)
	assert.Empty(t, g.FilterFiles(context.Background(), target, files).Survivors)
	assert.True(t, g.FilterTarget(context.Background(), target).Tracks[0].Record.Queued)

	ledger.Reset()
	assert.Len(t, g.FilterFiles(context.Background(), target, files).Survivors, 1)
}

func TestLedger_ClaimRelease(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	assert.True(t, ledger.Claim(`music\Artist X\Album Y\01 Song A.flac`))
	assert.False(t, ledger.Claim(`other\Album_Y\01_Song_A.FLAC`), "same folder and name")
	assert.True(t, ledger.Claim(`music\Artist X\Album Z\01 Song A.flac`), "same name in another folder")
	assert.Len(t, ledger.Paths(), 2)

	ledger.Release(`music\Artist X\Album Y\01 Song A.flac`)
	assert.False(t, ledger.Has(`music\Artist X\Album Y\01 Song A.flac`))
	assert.Equal(t, []string{"music/Artist X/Album Z/01 Song A.flac"}, ledger.Paths())
	assert.True(t, ledger.Claim(`music\Artist X\Album Y\01 Song A.flac`))
}

func TestLedger_ConcurrentClaimsAreExclusive(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.Claim(`music\Artist X\Album Y\01 Song A.flac`) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestGate_TransfersFetchedPerCall(t *testing.T) {
	t.Parallel()

	transfers := &fakeTransfers{}
	g := NewGate(nil, transfers, nil, nil, DefaultConfig())
	files := []*models.Candidate{candidate(`Album Y\01 Song A.flac`, &target.Tracks[0])}

	assert.Len(t, g.FilterFiles(context.Background(), target, files).Survivors, 1)
	transfers.transfers = []models.Transfer{{Filename: `x\Album Y\01 Song A.flac`, State: models.TransferStateQueued}}
	assert.Empty(t, g.FilterFiles(context.Background(), target, files).Survivors)
	assert.Equal(t, 2, transfers.calls)
}

func TestGate_Idempotent(t *testing.T) {
	t.Parallel()

	owned := &fakeOwned{owned: map[string]bool{ownedKey("Artist X", "Album Y", &target.Tracks[0]): true}}
	transfers := &fakeTransfers{transfers: []models.Transfer{
		{Filename: `x\Artist X\Album Y\02 Song B.flac`, State: models.TransferStateQueued},
	}}
	g := NewGate(owned, transfers, &fakeCompleted{files: []string{"Album Y/03 Song C.flac"}}, nil, DefaultConfig())

	first := g.FilterTarget(context.Background(), target)
	second := g.FilterTarget(context.Background(), target)
	assert.Equal(t, first, second)

	files := []*models.Candidate{
		candidate(`a\Album Y\01 Song A.flac`, &target.Tracks[0]),
		candidate(`a\Album Y\02 Song B.flac`, &target.Tracks[1]),
	}
	assert.Equal(t, g.FilterFiles(context.Background(), target, files), g.FilterFiles(context.Background(), target, files))
}

func TestGate_FailurePolicy(t *testing.T) {
	t.Parallel()

	broken := errors.New("library unreachable")

	open := NewGate(&fakeOwned{err: broken}, &fakeTransfers{err: broken}, &fakeCompleted{err: broken}, nil, DefaultConfig())
	res := open.FilterTarget(context.Background(), target)
	assert.False(t, res.Satisfied, "fail open keeps everything wanted")
	for _, tr := range res.Tracks {
		assert.True(t, tr.Record.Degraded)
		assert.False(t, tr.Record.Satisfied())
	}

	closedCfg := DefaultConfig()
	closedCfg.FailOpen = false
	closed := NewGate(&fakeOwned{err: broken}, &fakeTransfers{err: broken}, nil, nil, closedCfg)
	res = closed.FilterTarget(context.Background(), target)
	assert.True(t, res.Satisfied, "fail closed excludes everything")
	assert.True(t, res.Tracks[0].Record.Owned)
	assert.True(t, res.Tracks[0].Record.Queued)
}

func TestGate_ProtectedFailsClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	g := NewGate(&fakeOwned{owned: map[string]bool{"Artist X|Album Y": true}}, nil, nil, nil, DefaultConfig())
	assert.True(t, g.Protected(ctx, "Artist X", "Album Y"))
	assert.False(t, g.Protected(ctx, "Artist X", "Album Z"))

	// Even with a fail-open download policy, deletion checks fail closed.
	broken := NewGate(&fakeOwned{err: errors.New("boom")}, nil, nil, nil, DefaultConfig())
	assert.True(t, broken.Protected(ctx, "Artist X", "Album Z"))

	assert.True(t, NewGate(nil, nil, nil, nil, DefaultConfig()).Protected(ctx, "Artist X", "Album Z"))
}

func TestCompletedFolder_ListCompleted(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, f := range []string{
		"Artist X - Album Y/01 Song A.flac",
		"Artist X - Album Y/cover.jpg",
		"Artist X - Album Y/CD2/01 Song D.mp3",
		"loose.mp3",
		"a/b/c/d/e/too deep.flac",
	} {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	files, err := NewCompletedFolder(root).ListCompleted(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Artist X - Album Y/01 Song A.flac",
		"Artist X - Album Y/CD2/01 Song D.mp3",
		"loose.mp3",
	}, files)

	missing, err := NewCompletedFolder(filepath.Join(root, "nope")).ListCompleted(context.Background())
	require.NoError(t, err)
	assert.Empty(t, missing)

	none, err := NewCompletedFolder("").ListCompleted(context.Background())
	require.NoError(t, err)
	assert.Nil(t, none)
}
