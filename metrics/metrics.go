// Package metrics holds the Prometheus collectors for the query pipeline.
// Collectors register with the default registry at init and are exposed by
// the server at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "policyassist"

var (
	// QueriesTotal counts answered queries.
	// Labels: outcome (answered, no_documents, retrieval_error, generation_error, history_error, invalid)
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Queries processed by outcome",
	}, []string{"outcome"})

	// RelaxedFiltersTotal counts access filter runs that fell back to the relaxed set.
	RelaxedFiltersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relaxed_filters_total",
		Help:      "Access filter relaxations by requester role",
	}, []string{"role"})

	StructuringFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "structuring_fallbacks_total",
		Help:      "Answers structured by the heuristic fallback instead of the model",
	})

	ConfidenceDefaultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confidence_defaults_total",
		Help:      "HR confidence scores that fell back to the default value",
	})

	// PipelineDuration measures each stage of a query.
	// Labels: stage (retrieve, filter, synthesize, total)
	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of query pipeline stages",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	RetrievedChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "retrieved_chunks",
		Help:      "Chunks returned by vector search before filtering",
		Buckets:   prometheus.LinearBuckets(0, 2, 11),
	})

	IngestedChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_chunks_total",
		Help:      "Policy chunks written by the ingestion pipeline",
	})
)

// ObserveStage records the time elapsed since start for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	PipelineDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
