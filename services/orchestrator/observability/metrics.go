// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the query
// pipeline. Metrics include:
//   - Request counters (by domain, status, error type)
//   - Validation failure counters (by domain and failing check)
//   - Evidence source counters (by origin)
//   - Confidence and duration histograms
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
const metricsNamespace = "fairagent"

// Subsystem for query pipeline metrics
const querySubsystem = "query"

// QueryMetrics holds all Prometheus metrics for query pipeline operations.
//
// # Description
//
// Provides counters and histograms for monitoring query throughput,
// validation outcomes, evidence retrieval, and confidence calibration.
// Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of queries by domain and status
//   - ValidationFailuresTotal: Counter of failed checks by domain and check
//   - EvidenceSourcesTotal: Counter of evidence sources by origin
//   - ScreenedQueriesTotal: Counter of queries blocked by the safety screen
//   - Confidence: Histogram of final calibrated confidence by domain
//   - QueryDurationSeconds: Histogram of end-to-end processing time
//   - ErrorsTotal: Counter of errors by type
//
// # Thread Safety
//
// All operations are thread-safe.
type QueryMetrics struct {
	// RequestsTotal counts queries by domain and status.
	// Labels: domain (medical, finance, general), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ValidationFailuresTotal counts failed validation checks.
	// Labels: domain, check (citation, numeric, safety, completeness)
	ValidationFailuresTotal *prometheus.CounterVec

	// EvidenceSourcesTotal counts retrieved evidence sources by origin.
	// Labels: origin (curated, live)
	EvidenceSourcesTotal *prometheus.CounterVec

	// ScreenedQueriesTotal counts queries blocked before generation.
	// Labels: domain
	ScreenedQueriesTotal *prometheus.CounterVec

	// Confidence measures the final calibrated confidence distribution.
	// Labels: domain
	Confidence *prometheus.HistogramVec

	// QueryDurationSeconds measures end-to-end query processing time.
	// Labels: domain, status (success, error)
	QueryDurationSeconds *prometheus.HistogramVec

	// ErrorsTotal counts errors by type.
	// Labels: error_code (validation, llm_error, timeout, internal)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of QueryMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *QueryMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after Prometheus registry is available.
//
// # Outputs
//
//   - *QueryMetrics: The initialized metrics instance.
//
// # Examples
//
//	func main() {
//	    observability.InitMetrics()
//	    // ... start server ...
//	}
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *QueryMetrics {
	DefaultMetrics = &QueryMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "requests_total",
				Help:      "Total number of queries by domain and status",
			},
			[]string{"domain", "status"},
		),

		ValidationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "validation_failures_total",
				Help:      "Total failed validation checks by domain and check",
			},
			[]string{"domain", "check"},
		),

		EvidenceSourcesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "evidence_sources_total",
				Help:      "Total evidence sources retrieved by origin",
			},
			[]string{"origin"},
		),

		ScreenedQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "screened_queries_total",
				Help:      "Total queries blocked by the safety screen",
			},
			[]string{"domain"},
		),

		Confidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "confidence",
				Help:      "Final calibrated confidence by domain",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85},
			},
			[]string{"domain"},
		),

		QueryDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "duration_seconds",
				Help:      "End-to-end query processing time in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"domain", "status"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: querySubsystem,
				Name:      "errors_total",
				Help:      "Total query errors by type",
			},
			[]string{"error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates LLM API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed query.
//
// # Inputs
//
//   - domain: The query domain.
//   - success: Whether the query completed successfully.
func (m *QueryMetrics) RecordRequest(domain string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(domain, status).Inc()
}

// RecordError records a query error.
//
// # Inputs
//
//   - code: The error type code.
func (m *QueryMetrics) RecordError(code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(code)).Inc()
}

// RecordValidationFailure records one failed validation check.
//
// # Inputs
//
//   - domain: The query domain.
//   - check: The failing check name (citation, numeric, safety, completeness).
func (m *QueryMetrics) RecordValidationFailure(domain, check string) {
	m.ValidationFailuresTotal.WithLabelValues(domain, check).Inc()
}

// RecordEvidence records the evidence bundle composition.
//
// # Inputs
//
//   - curated: Number of curated sources in the bundle.
//   - live: Number of live sources in the bundle.
func (m *QueryMetrics) RecordEvidence(curated, live int) {
	m.EvidenceSourcesTotal.WithLabelValues("curated").Add(float64(curated))
	m.EvidenceSourcesTotal.WithLabelValues("live").Add(float64(live))
}

// RecordScreened records a query blocked by the safety screen.
//
// # Inputs
//
//   - domain: The query domain.
func (m *QueryMetrics) RecordScreened(domain string) {
	m.ScreenedQueriesTotal.WithLabelValues(domain).Inc()
}

// RecordConfidence records the final calibrated confidence.
//
// # Inputs
//
//   - domain: The query domain.
//   - confidence: The final confidence in [0, 0.85].
func (m *QueryMetrics) RecordConfidence(domain string, confidence float64) {
	m.Confidence.WithLabelValues(domain).Observe(confidence)
}

// RecordDuration records the end-to-end processing time.
//
// # Inputs
//
//   - domain: The query domain.
//   - seconds: Processing time in seconds.
//   - success: Whether the query completed successfully.
func (m *QueryMetrics) RecordDuration(domain string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.QueryDurationSeconds.WithLabelValues(domain, status).Observe(seconds)
}
