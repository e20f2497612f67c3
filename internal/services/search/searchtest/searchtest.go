// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package searchtest provides an in-memory search provider and a clock that
// advances instantly, for tests of code built on the search package.
package searchtest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

// Clock is a fake clock whose After fires immediately after advancing the
// current time by the requested duration.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Provider is an in-memory search provider. Responses are looked up by the
// exact query text; unknown queries complete with no results.
type Provider struct {
	mu sync.Mutex

	Responses map[string][]models.PeerResponse
	// Statuses, when set, are returned by successive polls of every search;
	// the last one repeats.
	Statuses []models.SearchStatus

	IssueErr error
	PollErr  error
	FetchErr error
	// OnPoll runs before each poll with the 1-based poll count.
	OnPoll func(n int)

	Issued []string
	Closed []string

	queries map[string]string
	polls   int
}

// NewProvider returns a provider answering the given queries.
func NewProvider(responses map[string][]models.PeerResponse) *Provider {
	if responses == nil {
		responses = make(map[string][]models.PeerResponse)
	}
	return &Provider{Responses: responses, queries: make(map[string]string)}
}

func (p *Provider) Issue(_ context.Context, query string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IssueErr != nil {
		return "", p.IssueErr
	}
	if p.queries == nil {
		p.queries = make(map[string]string)
	}
	p.Issued = append(p.Issued, query)
	id := "search-" + strconv.Itoa(len(p.Issued))
	p.queries[id] = query
	return id, nil
}

func (p *Provider) PollStatus(ctx context.Context, id string) (models.SearchStatus, error) {
	p.mu.Lock()
	p.polls++
	n := p.polls
	hook := p.OnPoll
	p.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err := ctx.Err(); err != nil {
		return models.SearchStatus{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PollErr != nil {
		return models.SearchStatus{}, p.PollErr
	}
	if len(p.Statuses) > 0 {
		idx := min(n-1, len(p.Statuses)-1)
		return p.Statuses[idx], nil
	}

	responses := p.Responses[p.queries[id]]
	status := models.SearchStatus{IsComplete: true, ResponseCount: len(responses)}
	for _, r := range responses {
		status.FileCount += len(r.Files)
	}
	return status, nil
}

func (p *Provider) FetchResponses(_ context.Context, id string) ([]models.PeerResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	return p.Responses[p.queries[id]], nil
}

func (p *Provider) Close(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = append(p.Closed, id)
	return nil
}

// Polls returns how many status polls were made.
func (p *Provider) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// IssuedQueries returns a copy of every issued query in order.
func (p *Provider) IssuedQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Issued...)
}

// ClosedIDs returns a copy of every closed search id in order.
func (p *Provider) ClosedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Closed...)
}
