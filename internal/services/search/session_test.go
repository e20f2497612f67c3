// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/search"
	"github.com/soulseekarr/soulseekarr/internal/services/search/searchtest"
)

const query = `"Artist X" "Album Y"`

func testResponses() map[string][]models.PeerResponse {
	return map[string][]models.PeerResponse{
		query: {{
			Peer: "peer-a",
			Files: []models.RemoteFile{
				{Path: `music\Artist X\Album Y\01 Song A.flac`, Size: 35 << 20},
			},
		}},
	}
}

func newSession(p search.Provider) *search.Session {
	return search.NewSession(p, search.Policy{
		Interval:               4 * time.Second,
		MaxWait:                120 * time.Second,
		MinWaitBeforeEarlyExit: 60 * time.Second,
	}, search.WithClock(searchtest.NewClock()))
}

func TestSession_CompletesWhenProviderReportsComplete(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(testResponses())
	provider.Statuses = []models.SearchStatus{
		{FileCount: 0},
		{FileCount: 1, ResponseCount: 1},
		{IsComplete: true, FileCount: 1, ResponseCount: 1},
	}

	result, err := newSession(provider).Run(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Polls)
	assert.False(t, result.TimedOut)
	assert.False(t, result.EarlyExit)
	assert.Equal(t, 1, result.FileCount())
	assert.Equal(t, 8*time.Second, result.Elapsed)
	assert.Equal(t, []string{"search-1"}, provider.ClosedIDs())
}

func TestSession_EarlyExitAfterMinWaitWithResults(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(testResponses())
	provider.Statuses = []models.SearchStatus{{FileCount: 5, ResponseCount: 1}}

	result, err := newSession(provider).Run(context.Background(), query)
	require.NoError(t, err)

	assert.True(t, result.EarlyExit)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 60*time.Second, result.Elapsed)
	assert.Equal(t, 16, result.Polls)
	assert.Equal(t, 1, result.FileCount())
}

func TestSession_TimeoutWithoutResultsIsEmptyNotError(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(testResponses())
	provider.Statuses = []models.SearchStatus{{}}

	result, err := newSession(provider).Run(context.Background(), query)
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.Empty(t, result.Responses)
	assert.Equal(t, 120*time.Second, result.Elapsed)
	assert.Equal(t, 31, result.Polls)
	assert.Len(t, provider.ClosedIDs(), 1)
}

func TestSession_PollErrorsAreRetried(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(testResponses())
	provider.PollErr = errors.New("connection reset")

	result, err := newSession(provider).Run(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Empty(t, result.Responses)
}

func TestSession_IssueFailureIsProviderUnavailable(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(nil)
	provider.IssueErr = errors.New("dial tcp: connection refused")

	_, err := newSession(provider).Run(context.Background(), query)
	require.ErrorIs(t, err, search.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, provider.ClosedIDs())
}

func TestSession_FetchFailureIsProviderUnavailable(t *testing.T) {
	t.Parallel()

	provider := searchtest.NewProvider(testResponses())
	provider.FetchErr = errors.New("502 bad gateway")

	_, err := newSession(provider).Run(context.Background(), query)
	require.ErrorIs(t, err, search.ErrProviderUnavailable)
	assert.Len(t, provider.ClosedIDs(), 1)
}

func TestSession_CancelStopsPollingAndClosesSearch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := searchtest.NewProvider(testResponses())
	provider.Statuses = []models.SearchStatus{{}}
	provider.OnPoll = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	result, err := newSession(provider).Run(ctx, query)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 3, provider.Polls())
	assert.Equal(t, []string{"search-1"}, provider.ClosedIDs())
}

func TestPolicy(t *testing.T) {
	t.Parallel()

	p := search.DefaultPolicy()
	assert.False(t, p.ShouldExitEarly(59*time.Second, models.SearchStatus{FileCount: 10}))
	assert.False(t, p.ShouldExitEarly(61*time.Second, models.SearchStatus{}))
	assert.True(t, p.ShouldExitEarly(60*time.Second, models.SearchStatus{FileCount: 1}))
	assert.Equal(t, 31, p.MaxPolls())

	s := search.NewSession(searchtest.NewProvider(nil), search.Policy{})
	assert.Equal(t, search.DefaultPolicy(), s.Policy())
}
