// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soulseekarr/soulseekarr/internal/services/planner"
)

// PlannerCollector turns planner outcomes into counters. It satisfies
// planner.Recorder.
type PlannerCollector struct {
	DecisionsTotal      *prometheus.CounterVec
	FilesRequestedTotal prometheus.Counter
	DedupHitsTotal      *prometheus.CounterVec
	ErrorsTotal         prometheus.Counter
	PlanDuration        prometheus.Histogram
}

func NewPlannerCollector(r *prometheus.Registry) *PlannerCollector {
	m := &PlannerCollector{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soulseekarr",
			Subsystem: "planner",
			Name:      "decisions_total",
			Help:      "Total number of planning decisions by reason",
		}, []string{"reason"}),
		FilesRequestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulseekarr",
			Subsystem: "planner",
			Name:      "files_requested_total",
			Help:      "Total number of files handed to slskd",
		}),
		DedupHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soulseekarr",
			Subsystem: "dedup",
			Name:      "hits_total",
			Help:      "Total number of wanted items already covered, by source",
		}, []string{"source"}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soulseekarr",
			Subsystem: "planner",
			Name:      "errors_total",
			Help:      "Total number of targets that ended with an error",
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soulseekarr",
			Subsystem: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Time spent planning one target",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
	}

	r.MustRegister(m.DecisionsTotal)
	r.MustRegister(m.FilesRequestedTotal)
	r.MustRegister(m.DedupHitsTotal)
	r.MustRegister(m.ErrorsTotal)
	r.MustRegister(m.PlanDuration)
	return m
}

func (m *PlannerCollector) RecordOutcome(o planner.Outcome) {
	m.DecisionsTotal.WithLabelValues(string(o.Decision.Reason)).Inc()
	for _, req := range o.Decision.Requests {
		if req.Accepted {
			m.FilesRequestedTotal.Add(float64(len(req.Files)))
		}
	}
	if o.Err != nil {
		m.ErrorsTotal.Inc()
	}
	m.PlanDuration.Observe(o.Elapsed.Seconds())

	if o.Dedup.Remaining.IsAlbumMode() {
		m.recordHits(o.Dedup.Album.Owned, o.Dedup.Album.Queued, o.Dedup.Album.Completed)
		return
	}
	for _, tr := range o.Dedup.Tracks {
		m.recordHits(tr.Record.Owned, tr.Record.Queued, tr.Record.Completed)
	}
}

func (m *PlannerCollector) recordHits(owned, queued, completed bool) {
	if owned {
		m.DedupHitsTotal.WithLabelValues("library").Inc()
	}
	if queued {
		m.DedupHitsTotal.WithLabelValues("transfers").Inc()
	}
	if completed {
		m.DedupHitsTotal.WithLabelValues("completed").Inc()
	}
}
