package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_normalized_total",
			Help: "Total number of raw job records normalized",
		},
		[]string{"source"},
	)

	JobsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_dropped_total",
			Help: "Total number of raw job records dropped during normalization",
		},
		[]string{"source"},
	)

	MappingResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_mapping_results_total",
			Help: "Total number of mapping results by cascade tier",
		},
		[]string{"result_source"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_llm_request_duration_seconds",
			Help: "Duration of completion-service requests in seconds",
		},
		[]string{"model"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_mapping_cache_hits_total",
			Help: "Total number of mapping results served from cache",
		},
	)
)
