// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package planner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/dedup"
)

const historyTimeout = 5 * time.Second

// Outcome is the per-target result of a batch. Err is set when planning
// stopped early; Decision is always filled in.
type Outcome struct {
	Target   models.WantedTarget
	Decision models.Decision
	Dedup    dedup.TargetResult
	Err      error
	Elapsed  time.Duration
}

// Recorder observes outcomes, for metrics.
type Recorder interface {
	RecordOutcome(o Outcome)
}

// History persists decisions.
type History interface {
	Append(ctx context.Context, d models.Decision) error
}

// Stats are the counters of one batch run.
type Stats struct {
	Checked        int `json:"checked"`
	Satisfied      int `json:"satisfied"`
	Queued         int `json:"queued"`
	Planned        int `json:"planned"`
	Partial        int `json:"partial"`
	NoCandidates   int `json:"noCandidates"`
	Failed         int `json:"failed"`
	Cancelled      int `json:"cancelled"`
	Invalid        int `json:"invalid"`
	FilesRequested int `json:"filesRequested"`
	TracksOwned    int `json:"tracksOwned"`
	TracksQueued   int `json:"tracksQueued"`
}

func (s *Stats) add(o Outcome) {
	s.Checked++

	d := o.Decision
	switch d.Reason {
	case models.ReasonAlreadySatisfied:
		s.Satisfied++
	case models.ReasonNoCandidates:
		s.NoCandidates++
	case models.ReasonProviderUnavailable, models.ReasonSinkRejected:
		s.Failed++
	case models.ReasonCancelled:
		s.Cancelled++
	case models.ReasonInvalidTarget:
		s.Invalid++
	case models.ReasonPartialMatch:
		s.Partial++
	}

	if d.Reason == models.ReasonMatched || d.Reason == models.ReasonPartialMatch {
		if d.DryRun {
			s.Planned++
		} else if d.Queued() {
			s.Queued++
		}
	}
	s.FilesRequested += d.FileCount()

	for _, tr := range o.Dedup.Tracks {
		switch {
		case tr.Record.Owned:
			s.TracksOwned++
		case tr.Record.Queued, tr.Record.Completed:
			s.TracksQueued++
		}
	}
}

// BatchResult holds every outcome in target order plus the counters.
type BatchResult struct {
	Outcomes []Outcome
	Stats    Stats
}

// PlanBatch plans targets concurrently, Config.Concurrency at a time. A
// failing target never stops its siblings. When ctx is cancelled, targets
// not yet started are reported as cancelled and the counters gathered so
// far are still returned.
func (p *Planner) PlanBatch(ctx context.Context, targets []models.WantedTarget) BatchResult {
	result := BatchResult{Outcomes: make([]Outcome, len(targets))}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for i, target := range targets {
		g.Go(func() error {
			o := p.run(ctx, target)

			mu.Lock()
			result.Outcomes[i] = o
			result.Stats.add(o)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("checked", result.Stats.Checked).
		Int("satisfied", result.Stats.Satisfied).
		Int("queued", result.Stats.Queued).
		Int("planned", result.Stats.Planned).
		Int("partial", result.Stats.Partial).
		Int("no_candidates", result.Stats.NoCandidates).
		Int("failed", result.Stats.Failed).
		Int("cancelled", result.Stats.Cancelled).
		Msg("Batch finished")

	return result
}

func (p *Planner) observe(ctx context.Context, o Outcome) {
	if p.recorder != nil {
		p.recorder.RecordOutcome(o)
	}
	if p.history == nil {
		return
	}
	if o.Decision.Reason == models.ReasonCancelled && o.Decision.FileCount() == 0 {
		return
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := p.history.Append(hctx, o.Decision); err != nil {
		log.Warn().Err(err).Str("target", o.Target.Label()).Msg("Failed to record decision")
	}
}
