// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

const scrapeTimeout = 10 * time.Second

// TransferSource is the slskd download queue read on every scrape.
type TransferSource interface {
	ListTransfers(ctx context.Context) ([]models.Transfer, error)
}

var transferStates = []models.TransferState{
	models.TransferStateQueued,
	models.TransferStateInProgress,
	models.TransferStateCompleted,
	models.TransferStateFailed,
	models.TransferStateCancelled,
	models.TransferStateTimedOut,
}

type TransferCollector struct {
	source TransferSource

	transfersDesc *prometheus.Desc
	peersDesc     *prometheus.Desc
	bytesDesc     *prometheus.Desc
	upDesc        *prometheus.Desc
}

func NewTransferCollector(source TransferSource) *TransferCollector {
	return &TransferCollector{
		source: source,

		transfersDesc: prometheus.NewDesc(
			"soulseekarr_slskd_transfers",
			"Number of slskd downloads by state",
			[]string{"state"},
			nil,
		),
		peersDesc: prometheus.NewDesc(
			"soulseekarr_slskd_transfer_peers",
			"Number of distinct peers with downloads in the queue",
			nil,
			nil,
		),
		bytesDesc: prometheus.NewDesc(
			"soulseekarr_slskd_transfer_bytes",
			"Total size of slskd downloads by state",
			[]string{"state"},
			nil,
		),
		upDesc: prometheus.NewDesc(
			"soulseekarr_slskd_up",
			"Whether the last transfer listing succeeded (1) or failed (0)",
			nil,
			nil,
		),
	}
}

func (c *TransferCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transfersDesc
	ch <- c.peersDesc
	ch <- c.bytesDesc
	ch <- c.upDesc
}

func (c *TransferCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	transfers, err := c.source.ListTransfers(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to list slskd transfers for metrics")
		ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 1)

	counts := make(map[models.TransferState]int, len(transferStates))
	sizes := make(map[models.TransferState]int64, len(transferStates))
	peers := make(map[string]struct{})
	for _, t := range transfers {
		counts[t.State]++
		sizes[t.State] += t.Size
		peers[t.Peer] = struct{}{}
	}

	for _, state := range transferStates {
		ch <- prometheus.MustNewConstMetric(c.transfersDesc, prometheus.GaugeValue, float64(counts[state]), string(state))
		ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.GaugeValue, float64(sizes[state]), string(state))
	}
	ch <- prometheus.MustNewConstMetric(c.peersDesc, prometheus.GaugeValue, float64(len(peers)))
}
