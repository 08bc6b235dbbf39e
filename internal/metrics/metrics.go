package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PollPostsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_posts_total",
		Help: "New posts returned by source pollers",
	}, []string{"source"})

	PollErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_errors_total",
		Help: "Failed feed fetches",
	}, []string{"source"})

	ExtractionBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extraction_batches_total",
		Help: "Extraction batches by the path that produced the result",
	}, []string{"path"})

	ExtractionFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extraction_fallback_total",
		Help: "Heuristic fallbacks by reason",
	}, []string{"reason"})

	ExtractionCandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_candidates_total",
		Help: "Deal candidates produced by extraction",
	})

	IngestDealsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_deals_total",
		Help: "Ingested candidates by outcome",
	}, []string{"outcome"})

	SweepDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_deleted_total",
		Help: "Records removed by the retention sweeper",
	})

	JobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job runs by status",
	}, []string{"job", "status"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Scheduled job run duration",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"job"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Outbound request duration",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Outbound requests",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "LLM generation latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Tokens used by LLM calls",
	}, []string{"model", "type"})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		PollPostsTotal,
		PollErrorsTotal,
		ExtractionBatchesTotal,
		ExtractionFallbackTotal,
		ExtractionCandidatesTotal,
		IngestDealsTotal,
		SweepDeletedTotal,
		JobRunsTotal,
		JobDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest records duration and status of an outbound call.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration records latency and token usage of one generation.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveJob records one scheduled job run.
func ObserveJob(job, status string, start time.Time) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	if status != "skipped" {
		JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	}
}
