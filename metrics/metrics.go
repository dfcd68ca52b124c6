// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics exposes query engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors, registered on one registry.
type Metrics struct {
	reg prometheus.Gatherer

	CacheLookups  *prometheus.CounterVec
	Scans         *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
	BallotsRead   *prometheus.CounterVec
	LockWait      prometheus.Histogram
	LockFailures  prometheus.Counter
	LeasesLost    prometheus.Counter
	RequestErrors *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "result_query_cache_lookups_total",
			Help: "Cache lookups by operation and result (hit or miss).",
		}, []string{"op", "result"}),
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "result_query_scans_total",
			Help: "Full ballot scans by operation.",
		}, []string{"op"}),
		ScanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "result_query_scan_duration_seconds",
			Help:    "Duration of ballot scans including aggregation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"op"}),
		BallotsRead: f.NewCounterVec(prometheus.CounterOpts{
			Name: "result_query_ballots_read_total",
			Help: "Ballots read from the store by operation.",
		}, []string{"op"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "result_query_lock_wait_seconds",
			Help:    "Time spent acquiring scan locks.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		LockFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "result_query_lock_failures_total",
			Help: "Scan lock acquisitions that timed out.",
		}),
		LeasesLost: f.NewCounter(prometheus.CounterOpts{
			Name: "result_query_leases_lost_total",
			Help: "Scan locks whose lease expired while held.",
		}),
		RequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "result_query_request_errors_total",
			Help: "Failed requests by error kind.",
		}, []string{"kind"}),
	}
}

// Hit records a cache lookup.
func (m *Metrics) Hit(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(op, result).Inc()
}

// Scanned records a finished scan.
func (m *Metrics) Scanned(op string, ballots int, d time.Duration) {
	m.Scans.WithLabelValues(op).Inc()
	m.BallotsRead.WithLabelValues(op).Add(float64(ballots))
	m.ScanDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
