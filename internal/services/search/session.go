// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package search runs one content search against a provider and decides
// when enough results have arrived.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

const closeTimeout = 10 * time.Second

// ErrProviderUnavailable means the search could not be issued or its
// results could not be read. It is fatal for the current cycle only.
var ErrProviderUnavailable = errors.New("search provider unavailable")

// Provider is the content-search network client.
type Provider interface {
	Issue(ctx context.Context, query string) (string, error)
	PollStatus(ctx context.Context, id string) (models.SearchStatus, error)
	FetchResponses(ctx context.Context, id string) ([]models.PeerResponse, error)
	Close(ctx context.Context, id string) error
}

// Handle identifies an issued search.
type Handle struct {
	ID        string
	Query     string
	StartedAt time.Time
}

// Result is what a search produced. A timed out search is not an error:
// it carries whatever was available, possibly nothing.
type Result struct {
	Query     string
	Responses []models.PeerResponse
	Status    models.SearchStatus
	TimedOut  bool
	EarlyExit bool
	Polls     int
	Elapsed   time.Duration
}

// FileCount counts files across all responses.
func (r *Result) FileCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, resp := range r.Responses {
		n += len(resp.Files)
	}
	return n
}

// Session issues searches through a provider under a polling policy.
type Session struct {
	provider Provider
	policy   Policy
	clock    Clock
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock, for tests.
func WithClock(clock Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// NewSession returns a session polling provider according to policy.
func NewSession(provider Provider, policy Policy, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		policy:   policy.withDefaults(),
		clock:    RealClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the effective polling policy.
func (s *Session) Policy() Policy {
	return s.policy
}

// Begin issues a search for query.
func (s *Session) Begin(ctx context.Context, query string) (*Handle, error) {
	id, err := s.provider.Issue(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: issue %q: %w", ErrProviderUnavailable, query, err)
	}

	log.Debug().Str("search_id", id).Str("query", query).Msg("Search issued")

	return &Handle{ID: id, Query: query, StartedAt: s.clock.Now()}, nil
}

// AwaitCompletion polls until the provider reports completion, the early
// exit condition holds, or MaxWait elapses. It returns ctx.Err() promptly
// when ctx is cancelled.
func (s *Session) AwaitCompletion(ctx context.Context, h *Handle) (*Result, error) {
	result := &Result{Query: h.Query}

	for {
		status, err := s.provider.PollStatus(ctx, h.ID)
		result.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("search_id", h.ID).Msg("Failed to poll search status, retrying")
		} else {
			result.Status = status
		}

		elapsed := s.clock.Now().Sub(h.StartedAt)
		result.Elapsed = elapsed

		if err == nil && status.IsComplete {
			break
		}
		if err == nil && s.policy.ShouldExitEarly(elapsed, status) {
			result.EarlyExit = true
			break
		}
		if elapsed >= s.policy.MaxWait {
			result.TimedOut = true
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.policy.Interval):
		}
	}

	if result.TimedOut && result.Status.FileCount == 0 {
		log.Debug().
			Str("search_id", h.ID).
			Str("query", h.Query).
			Dur("elapsed", result.Elapsed).
			Msg("Search timed out without results")
		return result, nil
	}

	responses, err := s.provider.FetchResponses(ctx, h.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if result.TimedOut {
			log.Warn().Err(err).Str("search_id", h.ID).Msg("Failed to fetch responses of timed out search")
			return result, nil
		}
		return nil, fmt.Errorf("%w: fetch responses %s: %w", ErrProviderUnavailable, h.ID, err)
	}
	result.Responses = responses

	log.Debug().
		Str("search_id", h.ID).
		Str("query", h.Query).
		Int("responses", len(responses)).
		Int("files", result.FileCount()).
		Bool("early_exit", result.EarlyExit).
		Bool("timed_out", result.TimedOut).
		Dur("elapsed", result.Elapsed).
		Msg("Search finished")

	return result, nil
}

// Close releases the provider-side search. It is detached from ctx
// cancellation so an interrupted search is still cleaned up.
func (s *Session) Close(ctx context.Context, h *Handle) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := s.provider.Close(closeCtx, h.ID); err != nil {
		log.Debug().Err(err).Str("search_id", h.ID).Msg("Failed to close search")
	}
}

// Run issues query, waits for results and always closes the search.
func (s *Session) Run(ctx context.Context, query string) (*Result, error) {
	h, err := s.Begin(ctx, query)
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx, h)

	return s.AwaitCompletion(ctx, h)
}
