// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package metrics provides Prometheus instrumentation for the API layer
// and the modeling pipeline. Metrics are exposed at /metrics in
// Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podscale_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podscale_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "podscale_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Pipeline Stage Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podscale_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"}, // "ingest", "train", "forecast", "optimize"
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podscale_stage_errors_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "kind"},
	)

	IngestedDays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "podscale_ingested_days_total",
			Help: "Total number of daily rows ingested",
		},
	)

	TrainingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "podscale_trainings_total",
			Help: "Total number of completed training runs",
		},
	)

	TrainingScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "podscale_training_last_score",
			Help: "Held-out R-squared of the most recent training run",
		},
	)

	ForecastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "podscale_forecasts_total",
			Help: "Total number of forecast runs",
		},
	)

	// Feed Fetch Metrics
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podscale_feed_fetch_duration_seconds",
			Help:    "Duration of outbound feed fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "csv", "rss"
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStage records a pipeline stage run, tagging failures with the
// error kind.
func RecordStage(stage string, duration time.Duration, kind string) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if kind != "" {
		StageErrors.WithLabelValues(stage, kind).Inc()
	}
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
