// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "protocol_engine"

var (
	// GenerationAttempts counts calls to the generation capability.
	// Labels: provider, outcome (success, retryable, fatal, invalid_draft)
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "attempts_total",
		Help:      "Generation capability calls by outcome",
	}, []string{"provider", "outcome"})

	// GenerationLatency measures a whole Generate call, retries included.
	// Labels: provider, status (success, failed, cancelled)
	GenerationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Protocol generation latency in seconds, all attempts included",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "status"})

	// PipelineOutcomes counts finished pipeline runs.
	// Labels: code (ok or a domain error code)
	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "outcomes_total",
		Help:      "Protocol pipeline results by error code",
	}, []string{"code"})

	// SanitizerRejections counts rejected free-text values.
	// Labels: boundary (input, output), reason (markup, sql, shell, injection, control, length, encoding)
	SanitizerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sanitizer",
		Name:      "rejections_total",
		Help:      "Free-text values rejected by the sanitizer",
	}, []string{"boundary", "reason"})

	PlanAssignments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plans",
		Name:      "assignments_total",
		Help:      "Protocol plan assignments that produced an instance",
	})
)
