// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package planner turns a wanted target into a download decision: dedup,
// search, rank, match, dedup again, then hand the chosen files to the
// download sink.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/candidates"
	"github.com/soulseekarr/soulseekarr/internal/services/dedup"
	"github.com/soulseekarr/soulseekarr/internal/services/matching"
	"github.com/soulseekarr/soulseekarr/internal/services/search"
)

const (
	DefaultMaxFallbackTracks = 3
	DefaultMaxSinkAttempts   = 3
	DefaultConcurrency       = 2
	DefaultSinkTimeout       = 30 * time.Second
)

// Sink accepts download requests.
type Sink interface {
	RequestDownload(ctx context.Context, peer string, files []models.RequestedFile) error
}

// Config controls fallback and retry bounds.
type Config struct {
	// MaxFallbackTracks caps per-track searches when the album search
	// yields nothing usable.
	MaxFallbackTracks int
	// MaxSinkAttempts is how many ranked peers are tried when the sink
	// refuses a request.
	MaxSinkAttempts int
	// Concurrency is the number of targets planned at once by PlanBatch.
	Concurrency int
	SinkTimeout time.Duration
	// DryRun computes decisions without calling the sink.
	DryRun bool
}

// DefaultConfig returns the default planner bounds.
func DefaultConfig() Config {
	return Config{
		MaxFallbackTracks: DefaultMaxFallbackTracks,
		MaxSinkAttempts:   DefaultMaxSinkAttempts,
		Concurrency:       DefaultConcurrency,
		SinkTimeout:       DefaultSinkTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxFallbackTracks < 0 {
		c.MaxFallbackTracks = 0
	}
	if c.MaxSinkAttempts <= 0 {
		c.MaxSinkAttempts = DefaultMaxSinkAttempts
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = DefaultSinkTimeout
	}
	return c
}

// Deps are the pipeline stages a Planner composes.
type Deps struct {
	Session *search.Session
	Index   *candidates.Index
	Matcher *matching.Matcher
	Gate    *dedup.Gate
	Sink    Sink
}

// Planner resolves wanted targets into decisions. It is safe for
// concurrent use; every call builds its own candidates.
type Planner struct {
	cfg      Config
	deps     Deps
	recorder Recorder
	history  History
	now      func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithRecorder reports every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// WithHistory appends every decision to h.
func WithHistory(h History) Option {
	return func(p *Planner) { p.history = h }
}

// WithNow replaces the clock used to stamp decisions.
func WithNow(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func New(cfg Config, deps Deps, opts ...Option) (*Planner, error) {
	if deps.Session == nil || deps.Index == nil || deps.Matcher == nil || deps.Gate == nil {
		return nil, errors.New("planner: session, index, matcher and gate are required")
	}
	cfg = cfg.withDefaults()
	if deps.Sink == nil && !cfg.DryRun {
		return nil, errors.New("planner: a download sink is required unless running dry")
	}

	p := &Planner{cfg: cfg, deps: deps, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

// Plan resolves one target. The returned error is set when the provider
// was unavailable or ctx was cancelled; the Decision is valid either way.
func (p *Planner) Plan(ctx context.Context, target models.WantedTarget) (models.Decision, error) {
	o := p.run(ctx, target)
	return o.Decision, o.Err
}

func (p *Planner) run(ctx context.Context, target models.WantedTarget) Outcome {
	start := p.now()
	decision, pre, err := p.plan(ctx, target)
	decision.DecidedAt = p.now()

	o := Outcome{
		Target:   target,
		Decision: decision,
		Dedup:    pre,
		Err:      err,
		Elapsed:  decision.DecidedAt.Sub(start),
	}
	p.observe(ctx, o)
	return o
}

func (p *Planner) plan(ctx context.Context, target models.WantedTarget) (models.Decision, dedup.TargetResult, error) {
	decision := models.Decision{Target: target, DryRun: p.cfg.DryRun}

	if err := target.Validate(); err != nil {
		decision.Reason = models.ReasonInvalidTarget
		decision.Detail = err.Error()
		return decision, dedup.TargetResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		decision.Reason = models.ReasonCancelled
		return decision, dedup.TargetResult{}, err
	}

	pre := p.deps.Gate.FilterTarget(ctx, target)
	decision.Satisfied = pre.SatisfiedTracks()
	if pre.Satisfied {
		decision.Reason = models.ReasonAlreadySatisfied
		log.Debug().Str("target", target.Label()).Msg("Target already satisfied, skipping search")
		return decision, pre, nil
	}
	remaining := pre.Remaining

	var b builder
	step, err := p.resolve(ctx, AlbumQuery(target), remaining)
	b.merge(step)
	if err != nil {
		return p.failed(decision, remaining, &b, err), pre, err
	}

	if !remaining.IsAlbumMode() && !b.chosen() {
		if err := p.fallback(ctx, remaining, &b); err != nil {
			return p.failed(decision, remaining, &b, err), pre, err
		}
	}

	return p.finish(decision, remaining, &b), pre, nil
}

// fallback searches wanted tracks one by one, up to MaxFallbackTracks.
func (p *Planner) fallback(ctx context.Context, target models.WantedTarget, b *builder) error {
	pending := b.missing(target)
	if len(pending) == 0 || p.cfg.MaxFallbackTracks == 0 {
		return nil
	}
	if len(pending) > p.cfg.MaxFallbackTracks {
		log.Debug().
			Str("target", target.Label()).
			Int("pending", len(pending)).
			Int("limit", p.cfg.MaxFallbackTracks).
			Msg("Limiting per-track fallback searches")
		pending = pending[:p.cfg.MaxFallbackTracks]
	}

	for _, track := range pending {
		single := target.WithTracks([]models.WantedTrack{track})
		step, err := p.resolve(ctx, TrackQuery(target, track), single)
		b.merge(step)
		if err != nil {
			return err
		}
	}
	return nil
}

// step is the outcome of one search-match-request round.
type step struct {
	accepted  []models.DownloadRequest
	rejected  []models.DownloadRequest
	resolved  []models.WantedTrack
	satisfied []models.WantedTrack
	// albumSatisfied is set when every file of the best album group was
	// already queued or present.
	albumSatisfied bool
}

// resolve runs one search for target and requests the best acceptable
// group, walking down the ranking when the sink refuses.
func (p *Planner) resolve(ctx context.Context, query string, target models.WantedTarget) (step, error) {
	var st step

	result, err := p.deps.Session.Run(ctx, query)
	if err != nil {
		return st, err
	}

	set := p.deps.Index.Build(result.Responses)
	matches := p.deps.Matcher.Match(set, target)

	log.Debug().
		Str("target", target.Label()).
		Str("query", query).
		Int("candidates", set.Len()).
		Int("groups", len(set.Groups)).
		Int("matches", len(matches)).
		Bool("timed_out", result.TimedOut).
		Msg("Candidates matched")

	attempts := 0
	for _, m := range matches {
		files := matchFiles(m, target)
		post := p.deps.Gate.FilterFiles(ctx, target, files)
		for _, d := range post.Dropped {
			if d.Candidate.Track != nil {
				st.satisfied = append(st.satisfied, *d.Candidate.Track)
			}
		}

		if err := ctx.Err(); err != nil {
			return st, err
		}

		claimed, taken := p.claim(post.Survivors)
		for _, c := range taken {
			if c.Track != nil {
				st.satisfied = append(st.satisfied, *c.Track)
			}
		}

		if len(claimed) == 0 {
			if target.IsAlbumMode() {
				st.albumSatisfied = true
			}
			return st, nil
		}

		req := models.DownloadRequest{Peer: m.Peer(), Files: requestedFiles(claimed)}
		attempts++
		if err := p.submit(ctx, req); err != nil {
			p.release(claimed)
			log.Warn().
				Err(err).
				Str("target", target.Label()).
				Str("peer", req.Peer).
				Int("files", len(req.Files)).
				Int("attempt", attempts).
				Msg("Download request rejected")
			st.rejected = append(st.rejected, req)
			if attempts >= p.cfg.MaxSinkAttempts {
				return st, nil
			}
			continue
		}

		req.Accepted = !p.cfg.DryRun
		st.accepted = append(st.accepted, req)
		for _, c := range claimed {
			if c.Track != nil {
				st.resolved = append(st.resolved, *c.Track)
			}
		}
		return st, nil
	}

	return st, nil
}

// matchFiles returns the files to request for a match: the whole group for
// albums, only the assigned files for tracks.
func matchFiles(m *matching.GroupMatch, target models.WantedTarget) []*models.Candidate {
	if target.IsAlbumMode() {
		return m.Files
	}
	files := make([]*models.Candidate, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		files = append(files, a.Candidate)
	}
	return files
}

func requestedFiles(cs []*models.Candidate) []models.RequestedFile {
	out := make([]models.RequestedFile, 0, len(cs))
	for _, c := range cs {
		out = append(out, models.RequestedFile{
			Path:  c.Path,
			Size:  c.Size,
			Score: c.Score,
			Track: c.Track,
		})
	}
	return out
}

// claim reserves files in the batch ledger before they are requested.
// Files another target claimed since the dedup check are returned as taken.
func (p *Planner) claim(files []*models.Candidate) (claimed, taken []*models.Candidate) {
	ledger := p.deps.Gate.Ledger()
	for _, c := range files {
		if ledger.Claim(c.Path) {
			claimed = append(claimed, c)
			continue
		}
		taken = append(taken, c)
	}
	return claimed, taken
}

func (p *Planner) release(files []*models.Candidate) {
	paths := make([]string, 0, len(files))
	for _, c := range files {
		paths = append(paths, c.Path)
	}
	p.deps.Gate.Ledger().Release(paths...)
}

// submit hands a request to the sink. The call is detached from ctx so an
// interrupt never leaves a half-sent request; once started it runs to
// completion or to SinkTimeout.
func (p *Planner) submit(ctx context.Context, req models.DownloadRequest) error {
	if p.cfg.DryRun {
		return nil
	}

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.SinkTimeout)
	defer cancel()

	return p.deps.Sink.RequestDownload(sinkCtx, req.Peer, req.Files)
}

// builder accumulates steps into one decision.
type builder struct {
	accepted       []models.DownloadRequest
	rejected       []models.DownloadRequest
	resolved       []models.WantedTrack
	satisfied      []models.WantedTrack
	albumSatisfied bool
}

func (b *builder) merge(st step) {
	b.accepted = append(b.accepted, st.accepted...)
	b.rejected = append(b.rejected, st.rejected...)
	b.resolved = appendUnique(b.resolved, st.resolved...)
	b.satisfied = appendUnique(b.satisfied, st.satisfied...)
	b.albumSatisfied = b.albumSatisfied || st.albumSatisfied
}

func (b *builder) chosen() bool {
	return len(b.accepted) > 0
}

// missing lists tracks of target neither resolved nor already satisfied.
func (b *builder) missing(target models.WantedTarget) []models.WantedTrack {
	var out []models.WantedTrack
	for _, t := range target.Tracks {
		if !slices.Contains(b.resolved, t) && !slices.Contains(b.satisfied, t) {
			out = append(out, t)
		}
	}
	return out
}

func appendUnique(dst []models.WantedTrack, tracks ...models.WantedTrack) []models.WantedTrack {
	for _, t := range tracks {
		if !slices.Contains(dst, t) {
			dst = append(dst, t)
		}
	}
	return dst
}

func (p *Planner) fill(decision models.Decision, target models.WantedTarget, b *builder) models.Decision {
	decision.Requests = b.accepted
	decision.Satisfied = appendUnique(decision.Satisfied, b.satisfied...)
	if !target.IsAlbumMode() {
		decision.Missing = b.missing(target)
	}
	return decision
}

func (p *Planner) finish(decision models.Decision, target models.WantedTarget, b *builder) models.Decision {
	decision = p.fill(decision, target, b)

	switch {
	case b.chosen() && len(decision.Missing) == 0:
		decision.Reason = models.ReasonMatched
	case b.chosen():
		decision.Reason = models.ReasonPartialMatch
		decision.Detail = fmt.Sprintf("%d of %d tracks unresolved", len(decision.Missing), len(target.Tracks))
	case target.IsAlbumMode() && b.albumSatisfied:
		decision.Reason = models.ReasonAlreadySatisfied
		decision.Detail = "matched files already queued or downloaded"
	case !target.IsAlbumMode() && len(decision.Missing) == 0:
		decision.Reason = models.ReasonAlreadySatisfied
		decision.Detail = "matched files already queued or downloaded"
	case len(b.rejected) > 0:
		decision.Reason = models.ReasonSinkRejected
		decision.Requests = b.rejected
		decision.Detail = fmt.Sprintf("%d download requests rejected", len(b.rejected))
	default:
		decision.Reason = models.ReasonNoCandidates
	}

	log.Info().
		Str("target", target.Label()).
		Str("reason", string(decision.Reason)).
		Str("peer", decision.Peer()).
		Int("files", decision.FileCount()).
		Int("missing", len(decision.Missing)).
		Bool("dry_run", decision.DryRun).
		Msg("Decision made")

	return decision
}

// failed builds the decision for an interrupted or unavailable search,
// keeping whatever was already requested.
func (p *Planner) failed(decision models.Decision, target models.WantedTarget, b *builder, err error) models.Decision {
	decision = p.fill(decision, target, b)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		decision.Reason = models.ReasonCancelled
	case b.chosen():
		decision.Reason = models.ReasonPartialMatch
	default:
		decision.Reason = models.ReasonProviderUnavailable
	}
	decision.Detail = err.Error()

	log.Warn().
		Err(err).
		Str("target", target.Label()).
		Str("reason", string(decision.Reason)).
		Int("files", decision.FileCount()).
		Msg("Planning stopped early")

	return decision
}
