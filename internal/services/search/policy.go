// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"time"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

const (
	DefaultPollInterval           = 4 * time.Second
	DefaultMaxWait                = 120 * time.Second
	DefaultMinWaitBeforeEarlyExit = 60 * time.Second
)

// Policy controls how long a search is polled and when it may stop early.
// Providers can report "in progress" for a long time while already holding
// usable results, so once MinWaitBeforeEarlyExit has passed any result is
// good enough.
type Policy struct {
	Interval               time.Duration
	MaxWait                time.Duration
	MinWaitBeforeEarlyExit time.Duration
}

// DefaultPolicy returns the polling policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Interval:               DefaultPollInterval,
		MaxWait:                DefaultMaxWait,
		MinWaitBeforeEarlyExit: DefaultMinWaitBeforeEarlyExit,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = def.MaxWait
	}
	if p.MinWaitBeforeEarlyExit <= 0 {
		p.MinWaitBeforeEarlyExit = def.MinWaitBeforeEarlyExit
	}
	return p
}

// ShouldExitEarly reports whether polling may stop before the provider
// reports completion.
func (p Policy) ShouldExitEarly(elapsed time.Duration, status models.SearchStatus) bool {
	return elapsed >= p.MinWaitBeforeEarlyExit && status.FileCount > 0
}

// MaxPolls is the upper bound of status polls a single search can cost.
func (p Policy) MaxPolls() int {
	p = p.withDefaults()
	return int(p.MaxWait/p.Interval) + 1
}
