// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var writeErrorsTotal atomic.Uint64

func recordWriteError() {
	writeErrorsTotal.Add(1)
}

type MetricsCollector struct {
	writeErrorsDesc *prometheus.Desc
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		writeErrorsDesc: prometheus.NewDesc(
			"soulseekarr_db_write_errors_total",
			"Number of failed writes on the dedicated write connection",
			nil,
			nil,
		),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.writeErrorsDesc
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.writeErrorsDesc,
		prometheus.CounterValue,
		float64(writeErrorsTotal.Load()),
	)
}
