// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_WatchInvalidatesListings(t *testing.T) {
	root := t.TempDir()
	idx := New(root)

	owned, err := idx.IsOwned(context.Background(), "Low", "Secret Name", nil)
	require.NoError(t, err)
	require.False(t, owned)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Watch(ctx) }()

	artistDir := filepath.Join(root, "Low")
	assert.Eventually(t, func() bool {
		// recreate until the watcher has registered the root
		_ = os.RemoveAll(artistDir)
		touch(t, root, "Low", "Secret Name", "01 - I Remember.flac")
		time.Sleep(20 * time.Millisecond)
		owned, err := idx.IsOwned(context.Background(), "Low", "Secret Name", nil)
		return err == nil && owned
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestIndex_WatchWithoutRoot(t *testing.T) {
	assert.ErrorIs(t, New("").Watch(context.Background()), ErrNoRoot)
}
