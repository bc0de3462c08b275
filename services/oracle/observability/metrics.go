// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the oracle.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the webhook
// pipeline. Metrics include:
//   - Webhook counters (by outcome)
//   - Diff fetch attempts (by result)
//   - Analysis fallbacks
//   - Broadcast deliveries and active websocket connections
//   - Pipeline latency histograms
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "crystalball"

// Subsystem for oracle pipeline metrics
const oracleSubsystem = "oracle"

// WebhookOutcome labels the terminal state of a webhook request.
type WebhookOutcome string

const (
	OutcomeProcessed    WebhookOutcome = "processed"
	OutcomeIgnored      WebhookOutcome = "ignored"
	OutcomeUnauthorized WebhookOutcome = "unauthorized"
	OutcomeMalformed    WebhookOutcome = "malformed"
	OutcomeFetchFailed  WebhookOutcome = "fetch_failed"
)

// FetchResult labels the outcome of a diff fetch.
type FetchResult string

const (
	FetchSuccess FetchResult = "success"
	FetchError   FetchResult = "error"
)

// OracleMetrics holds all Prometheus metrics for the webhook pipeline.
//
// Initialize once at startup via InitMetrics().
type OracleMetrics struct {
	// WebhooksTotal counts webhook requests by terminal outcome.
	// Labels: outcome (processed, ignored, unauthorized, malformed, fetch_failed)
	WebhooksTotal *prometheus.CounterVec

	// DiffFetchesTotal counts diff fetch operations, retries included.
	// Labels: result (success, error)
	DiffFetchesTotal *prometheus.CounterVec

	// AnalysisFallbacksTotal counts predictions that fell back to the
	// fixed default because analysis failed.
	AnalysisFallbacksTotal prometheus.Counter

	// PredictionsStoredTotal counts predictions appended to the history.
	PredictionsStoredTotal prometheus.Counter

	// BroadcastMessagesTotal counts per-subscriber deliveries.
	// Labels: status (delivered, failed)
	BroadcastMessagesTotal *prometheus.CounterVec

	// ActiveConnections tracks currently connected websocket clients.
	ActiveConnections prometheus.Gauge

	// PipelineDurationSeconds measures end-to-end webhook processing time.
	// Labels: outcome
	PipelineDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of OracleMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *OracleMetrics

// InitMetrics creates and registers all Prometheus metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *OracleMetrics {
	DefaultMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	return DefaultMetrics
}

// NewMetricsWith registers the metrics on a caller-supplied registry.
// Intended for tests that need isolation from the default registry.
func NewMetricsWith(reg prometheus.Registerer) *OracleMetrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(factory promauto.Factory) *OracleMetrics {
	return &OracleMetrics{
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "webhooks_total",
				Help:      "Total webhook requests by terminal outcome",
			},
			[]string{"outcome"},
		),

		DiffFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "diff_fetches_total",
				Help:      "Total diff fetch operations by result",
			},
			[]string{"result"},
		),

		AnalysisFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "analysis_fallbacks_total",
				Help:      "Total predictions substituted with the fixed fallback",
			},
		),

		PredictionsStoredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "predictions_stored_total",
				Help:      "Total predictions appended to the history store",
			},
		),

		BroadcastMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "broadcast_messages_total",
				Help:      "Total per-subscriber broadcast deliveries by status",
			},
			[]string{"status"},
		),

		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "active_connections",
				Help:      "Number of currently connected websocket clients",
			},
		),

		PipelineDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: oracleSubsystem,
				Name:      "pipeline_duration_seconds",
				Help:      "End-to-end webhook processing time in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordWebhook increments the webhook counter for the given outcome.
func (m *OracleMetrics) RecordWebhook(outcome WebhookOutcome) {
	m.WebhooksTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordFetch increments the diff fetch counter.
func (m *OracleMetrics) RecordFetch(result FetchResult) {
	m.DiffFetchesTotal.WithLabelValues(string(result)).Inc()
}

// RecordFallback increments the analysis fallback counter.
func (m *OracleMetrics) RecordFallback() {
	m.AnalysisFallbacksTotal.Inc()
}

// RecordPredictionStored increments the stored-prediction counter.
func (m *OracleMetrics) RecordPredictionStored() {
	m.PredictionsStoredTotal.Inc()
}

// RecordBroadcast records the delivery counts of one broadcast pass.
func (m *OracleMetrics) RecordBroadcast(delivered, failed int) {
	m.BroadcastMessagesTotal.WithLabelValues("delivered").Add(float64(delivered))
	m.BroadcastMessagesTotal.WithLabelValues("failed").Add(float64(failed))
}

// ClientConnected increments the active connection gauge.
func (m *OracleMetrics) ClientConnected() {
	m.ActiveConnections.Inc()
}

// ClientDisconnected decrements the active connection gauge.
func (m *OracleMetrics) ClientDisconnected() {
	m.ActiveConnections.Dec()
}

// RecordPipelineDuration observes one webhook's processing time.
func (m *OracleMetrics) RecordPipelineDuration(outcome WebhookOutcome, seconds float64) {
	m.PipelineDurationSeconds.WithLabelValues(string(outcome)).Observe(seconds)
}
