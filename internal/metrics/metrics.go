// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package metrics provides Prometheus instrumentation for the sync engine
// and the HTTP surface. Metrics are exposed at /metrics in Prometheus text
// format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync engine metrics

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of one (org, source) sync in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	SyncDatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_dates_total",
			Help: "Calendar dates synced, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Sync errors by source and error kind",
		},
		[]string{"source", "kind"},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Whole-org sync runs by overall outcome",
		},
		[]string{"outcome"},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful sync per source",
		},
		[]string{"source"},
	)

	// Report job engine metrics

	ReportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_jobs_total",
			Help: "Ad platform report jobs by terminal state",
		},
		[]string{"state"},
	)

	ReportJobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_jobs_pending",
			Help: "Report jobs currently awaiting completion",
		},
	)

	ReportPollTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_poll_ticks_total",
			Help: "Poll sweeps executed by the report job engine",
		},
	)

	RateLimitTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_rate_limit_trips_total",
			Help: "Runs aborted early by the ad platform rate-limit signal",
		},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result",
		},
		[]string{"name", "result"},
	)

	// Store metrics

	UpsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_upsert_duration_seconds",
			Help:    "Duration of fact upserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	UpsertErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_upsert_errors_total",
			Help: "Failed fact upserts by table",
		},
		[]string{"table"},
	)

	// HTTP metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// RecordSourceSync records one (org, source) sync outcome.
func RecordSourceSync(source string, duration time.Duration, synced, failed int) {
	SyncDuration.WithLabelValues(source).Observe(duration.Seconds())
	SyncDatesTotal.WithLabelValues(source, "success").Add(float64(synced))
	SyncDatesTotal.WithLabelValues(source, "failure").Add(float64(failed))
	if failed == 0 {
		SyncLastSuccess.WithLabelValues(source).SetToCurrentTime()
	}
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
