// Package observability exposes Prometheus instrumentation for the pipeline.
// Counters are package-level and registered with the default registry; the
// serve command exposes them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestRequests counts window fetch attempts by outcome (success|failure).
	IngestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "climate",
		Name:      "ingest_requests_total",
		Help:      "Ingestion window requests by outcome.",
	}, []string{"outcome"})

	// PipelineRuns counts completed pipeline executions by mode and status.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "climate",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline executions by run mode and status.",
	}, []string{"mode", "status"})

	// ObservabilityWriteFailures counts swallowed run-log write failures.
	// A non-zero value means the audit trail has gaps.
	ObservabilityWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "climate",
		Name:      "observability_write_failures_total",
		Help:      "Best-effort run log writes that failed and were swallowed.",
	})

	// TrainingDuration observes wall-clock training time.
	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "climate",
		Name:      "training_duration_seconds",
		Help:      "Duration of baseline model training.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)
