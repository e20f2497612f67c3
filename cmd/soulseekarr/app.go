// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/config"
	"github.com/soulseekarr/soulseekarr/internal/database"
	"github.com/soulseekarr/soulseekarr/internal/domain"
	"github.com/soulseekarr/soulseekarr/internal/history"
	"github.com/soulseekarr/soulseekarr/internal/metrics"
	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/candidates"
	"github.com/soulseekarr/soulseekarr/internal/services/dedup"
	"github.com/soulseekarr/soulseekarr/internal/services/library"
	"github.com/soulseekarr/soulseekarr/internal/services/matching"
	"github.com/soulseekarr/soulseekarr/internal/services/planner"
	"github.com/soulseekarr/soulseekarr/internal/services/scoring"
	"github.com/soulseekarr/soulseekarr/internal/services/search"
	"github.com/soulseekarr/soulseekarr/internal/services/variants"
	"github.com/soulseekarr/soulseekarr/internal/slskd"
	"github.com/soulseekarr/soulseekarr/internal/targets"
)

// app holds every wired component for one process.
type app struct {
	cfg     *domain.Config
	db      *database.DB
	history *history.Store
	client  *slskd.Client
	library *library.Index
	gate    *dedup.Gate
	planner *planner.Planner
	metrics *metrics.Manager
	targets targets.FileSource
}

type appOptions struct {
	dryRun      bool
	targetsPath string
	withMetrics bool
}

func secondsOr(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func candidateConfig(cfg *domain.Config) candidates.Config {
	cc := candidates.DefaultConfig()
	if len(cfg.AllowedFormats) > 0 {
		cc.AllowedFormats = cc.AllowedFormats[:0]
		for _, name := range cfg.AllowedFormats {
			f, ok := models.ParseAudioFormat(name)
			if !ok {
				log.Warn().Str("format", name).Msg("Ignoring unknown audio format")
				continue
			}
			cc.AllowedFormats = append(cc.AllowedFormats, f)
		}
	}
	if cfg.MinSizeBytes > 0 {
		cc.MinSizeBytes = cfg.MinSizeBytes
	}
	if cfg.MaxSizeBytes > 0 {
		cc.MaxSizeBytes = cfg.MaxSizeBytes
	}
	cc.FilterExpr = cfg.FilterExpr
	return cc
}

func newApp(appCfg *config.AppConfig, opts appOptions) (*app, error) {
	cfg := appCfg.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.New(appCfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db, history: history.NewStore(db)}

	a.client, err = slskd.NewClient(slskd.Config{
		URL:           cfg.SlskdURL,
		APIKey:        cfg.SlskdAPIKey,
		RateLimit:     cfg.SlskdRateLimit,
		Timeout:       secondsOr(cfg.SlskdTimeout, 30*time.Second),
		SearchTimeout: secondsOr(cfg.SearchTimeout, 45*time.Second),
	})
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	index, err := candidates.NewIndex(candidateConfig(cfg))
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	variantCfg := variants.DefaultConfig()
	variantCfg.RemasterPenalty = cfg.RemasterPenalty
	matchCfg := matching.DefaultConfig()
	if cfg.MinAlbumFiles > 0 {
		matchCfg.MinAlbumFiles = cfg.MinAlbumFiles
	}
	if cfg.MinTrackScore > 0 {
		matchCfg.MinTrackScore = cfg.MinTrackScore
	}
	matcher := matching.NewMatcher(matchCfg, scoring.NewDefaultScorer(), variants.NewFilter(variantCfg))

	session := search.NewSession(a.client, search.Policy{
		Interval:               secondsOr(cfg.SearchPollInterval, search.DefaultPollInterval),
		MaxWait:                secondsOr(cfg.SearchMaxWait, search.DefaultMaxWait),
		MinWaitBeforeEarlyExit: secondsOr(cfg.SearchMinWaitEarlyExit, search.DefaultMinWaitBeforeEarlyExit),
	})

	// Unset sources stay nil interfaces so the gate skips them.
	var owned dedup.OwnershipOracle
	if cfg.OwnedMusicPath != "" {
		a.library = library.New(cfg.OwnedMusicPath)
		owned = a.library
	}
	var completed dedup.CompletedLister
	if cfg.CompletedDownloadsPath != "" {
		completed = dedup.NewCompletedFolder(cfg.CompletedDownloadsPath)
	}

	gateCfg := dedup.DefaultConfig()
	gateCfg.FailOpen = cfg.DedupFailOpen
	if cfg.TokenOverlap > 0 {
		gateCfg.TokenOverlap = cfg.TokenOverlap
	}
	if cfg.MinAlbumFiles > 0 {
		gateCfg.MinAlbumFiles = cfg.MinAlbumFiles
	}
	a.gate = dedup.NewGate(owned, a.client, completed, dedup.NewLedger(), gateCfg)

	plannerOpts := []planner.Option{planner.WithHistory(a.history)}
	if opts.withMetrics && cfg.MetricsEnabled {
		a.metrics = metrics.NewManager(a.client, database.NewMetricsCollector())
		plannerOpts = append(plannerOpts, planner.WithRecorder(a.metrics.Planner))
	}

	a.planner, err = planner.New(planner.Config{
		MaxFallbackTracks: cfg.MaxFallbackTracks,
		MaxSinkAttempts:   cfg.MaxSinkAttempts,
		Concurrency:       cfg.Concurrency,
		DryRun:            opts.dryRun,
	}, planner.Deps{
		Session: session,
		Index:   index,
		Matcher: matcher,
		Gate:    a.gate,
		Sink:    a.client,
	}, plannerOpts...)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.targets = targets.FileSource{Path: cfg.TargetsPath}
	if opts.targetsPath != "" {
		a.targets.Path = opts.targetsPath
	}

	log.Debug().Interface("config", cfg.Redacted()).Msg("Components wired")
	return a, nil
}

// runOnce plans every wanted target with a fresh batch ledger.
func (a *app) runOnce(ctx context.Context) (planner.BatchResult, error) {
	wanted, err := a.targets.Wanted(ctx)
	if err != nil {
		return planner.BatchResult{}, err
	}

	a.gate.Ledger().Reset()
	log.Info().Int("targets", len(wanted)).Str("path", a.targets.Path).Msg("Planning wanted targets")
	return a.planner.PlanBatch(ctx, wanted), nil
}

// pruneHistory drops decisions older than the configured retention.
func (a *app) pruneHistory(ctx context.Context) {
	if a.cfg.HistoryRetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -a.cfg.HistoryRetentionDays)
	n, err := a.history.Prune(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune decision history")
		return
	}
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("Pruned decision history")
	}
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
