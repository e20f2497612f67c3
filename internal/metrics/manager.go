// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/metrics/collector"
)

type Manager struct {
	registry          *prometheus.Registry
	transferCollector *TransferCollector
	Planner           *collector.PlannerCollector
}

// NewManager builds a registry with the runtime collectors, the slskd
// transfer collector and any extra collectors such as the database one.
// A nil transfer source registers a collector that reports nothing.
func NewManager(transfers TransferSource, extra ...prometheus.Collector) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	transferCollector := NewTransferCollector(transfers)
	registry.MustRegister(transferCollector)

	for _, c := range extra {
		if c != nil {
			registry.MustRegister(c)
		}
	}

	log.Info().Msg("Metrics manager initialized with transfer collector")

	return &Manager{
		registry:          registry,
		transferCollector: transferCollector,
		Planner:           collector.NewPlannerCollector(registry),
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}
