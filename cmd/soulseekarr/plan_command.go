// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/soulseekarr/soulseekarr/internal/metrics"
	"github.com/soulseekarr/soulseekarr/internal/models"
	"github.com/soulseekarr/soulseekarr/internal/services/planner"
)

func RunPlanCommand(load configLoader) *cobra.Command {
	var (
		targetsPath string
		dryRun      bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan every wanted target once and queue the chosen files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(appCfg, appOptions{dryRun: dryRun, targetsPath: targetsPath})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.runOnce(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
			} else {
				printBatch(cmd, result, dryRun)
			}

			if cmd.Context().Err() != nil {
				cmd.Println("Interrupted, the summary above is partial.")
				return cmd.Context().Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetsPath, "targets", "", "Wanted list file, overrides targetsPath")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Decide without queueing anything in slskd")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	return cmd
}

func RunLoopCommand(load configLoader) *cobra.Command {
	var (
		targetsPath string
		interval    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan wanted targets on an interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(appCfg, appOptions{targetsPath: targetsPath, withMetrics: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if interval <= 0 {
				interval = time.Duration(max(a.cfg.RunInterval, 1)) * time.Minute
			}
			return a.loop(cmd.Context(), interval)
		},
	}

	cmd.Flags().StringVar(&targetsPath, "targets", "", "Wanted list file, overrides targetsPath")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between cycles, overrides runInterval")
	return cmd
}

// loop runs cycles until ctx ends, alongside the metrics server and the
// library watcher when they are enabled.
func (a *app) loop(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.metrics != nil {
		server := metrics.NewMetricsServer(a.metrics, a.cfg.MetricsHost, a.cfg.MetricsPort, a.cfg.MetricsBasicAuthUsers)
		g.Go(server.ListenAndServe)
		g.Go(func() error {
			<-ctx.Done()
			return server.Stop()
		})
	}

	if a.library != nil && a.cfg.WatchLibrary {
		g.Go(func() error {
			if err := a.library.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				// Without the watcher listings are still re-read when their cache expires.
				log.Error().Err(err).Msg("Library watcher stopped")
			}
			return nil
		})
	}

	// An edited wanted list starts the next cycle early.
	changed := make(chan struct{}, 1)
	if a.targets.Path != "" {
		g.Go(func() error {
			err := a.targets.Watch(ctx, 0, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			if err != nil {
				log.Warn().Err(err).Msg("Not watching the wanted list, changes apply on the next interval")
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			result, err := a.runOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Cycle failed")
			} else {
				logStats(result.Stats)
			}
			a.pruneHistory(ctx)

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			case <-changed:
				ticker.Reset(interval)
			}
		}
	})

	err := g.Wait()
	log.Info().Msg("Stopped")
	return err
}

func logStats(s planner.Stats) {
	log.Info().
		Int("checked", s.Checked).
		Int("satisfied", s.Satisfied).
		Int("queued", s.Queued).
		Int("partial", s.Partial).
		Int("no_candidates", s.NoCandidates).
		Int("failed", s.Failed).
		Int("files_requested", s.FilesRequested).
		Msg("Cycle finished")
}

func printBatch(cmd *cobra.Command, result planner.BatchResult, dryRun bool) {
	for _, o := range result.Outcomes {
		if o.Target.Artist == "" && o.Decision.Reason == "" {
			// never started, the batch was cancelled first
			continue
		}
		cmd.Println(describeDecision(o.Decision, dryRun))
	}

	s := result.Stats
	cmd.Printf("\nChecked %d: %d satisfied, %d queued, %d planned, %d partial, %d no candidates, %d failed, %d cancelled, %d invalid\n",
		s.Checked, s.Satisfied, s.Queued, s.Planned, s.Partial, s.NoCandidates, s.Failed, s.Cancelled, s.Invalid)
	cmd.Printf("Files requested: %d, tracks owned: %d, tracks queued: %d\n", s.FilesRequested, s.TracksOwned, s.TracksQueued)
}

func describeDecision(d models.Decision, dryRun bool) string {
	var b strings.Builder
	b.WriteString(d.Target.Label())
	b.WriteString(": ")
	b.WriteString(string(d.Reason))

	if n := d.FileCount(); n > 0 {
		verb := "queued"
		switch {
		case dryRun:
			verb = "would queue"
		case !d.Queued():
			verb = "refused"
		}
		peers := make([]string, 0, len(d.Requests))
		for _, r := range d.Requests {
			peers = append(peers, r.Peer)
		}
		b.WriteString(" (")
		b.WriteString(verb)
		b.WriteString(" ")
		b.WriteString(pluralFiles(n))
		b.WriteString(" from ")
		b.WriteString(strings.Join(peers, ", "))
		b.WriteString(")")
	}
	if len(d.Missing) > 0 {
		titles := make([]string, 0, len(d.Missing))
		for _, t := range d.Missing {
			titles = append(titles, t.Title)
		}
		b.WriteString(" missing: ")
		b.WriteString(strings.Join(titles, "; "))
	}
	if d.Detail != "" {
		b.WriteString(" [")
		b.WriteString(d.Detail)
		b.WriteString("]")
	}
	return b.String()
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
