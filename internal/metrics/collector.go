// Package metrics provides the Prometheus collector for the fleet assistant.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the assistant's Prometheus metrics.
type Collector struct {
	logger *zap.Logger

	pipelineExecutions *prometheus.CounterVec
	pipelineDuration   *prometheus.HistogramVec

	loopOutcomes *prometheus.CounterVec
	loopRounds   *prometheus.HistogramVec

	toolInvocations *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec

	llmRequests *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	dbQueryDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	appointmentsBooked prometheus.Counter
	commitFailures     prometheus.Counter
}

// NewCollector creates a collector registered on reg.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		logger: logger.With(zap.String("component", "metrics")),

		pipelineExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_executions_total",
			Help:      "Pipeline executions by pipeline and status.",
		}, []string{"pipeline", "status"}),
		pipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Pipeline execution duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"pipeline"}),

		loopOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refine_loop_outcomes_total",
			Help:      "Refine loop terminations by loop and outcome.",
		}, []string{"loop", "outcome"}),
		loopRounds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refine_loop_rounds",
			Help:      "Rounds executed per refine loop run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"loop"}),

		toolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by tool and status.",
		}, []string{"tool", "status"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"tool"}),

		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Model requests by provider, model and status.",
		}, []string{"provider", "model", "status"}),
		llmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model request duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider", "model"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by direction (prompt/completion).",
		}, []string{"provider", "model", "direction"}),

		dbQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warehouse_query_duration_seconds",
			Help:      "Warehouse query duration by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by cache.",
		}, []string{"cache"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by cache.",
		}, []string{"cache"}),

		appointmentsBooked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Appointments booked by the commit stage.",
		}),
		commitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      "Commit items that could not be booked.",
		}),
	}
}

// RecordPipelineExecution records one pipeline run.
func (c *Collector) RecordPipelineExecution(pipeline, status string, duration time.Duration) {
	c.pipelineExecutions.WithLabelValues(pipeline, status).Inc()
	c.pipelineDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordLoopOutcome records a refine loop termination.
func (c *Collector) RecordLoopOutcome(loop, outcome string, rounds int) {
	c.loopOutcomes.WithLabelValues(loop, outcome).Inc()
	c.loopRounds.WithLabelValues(loop).Observe(float64(rounds))
}

// RecordToolInvocation records one tool call.
func (c *Collector) RecordToolInvocation(tool, status string, duration time.Duration) {
	c.toolInvocations.WithLabelValues(tool, status).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordLLMRequest records one model request.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequests.WithLabelValues(provider, model, status).Inc()
	c.llmDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordDBQuery records one warehouse query.
func (c *Collector) RecordDBQuery(operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordCommit records the commit stage outcome counts.
func (c *Collector) RecordCommit(booked, failed int) {
	c.appointmentsBooked.Add(float64(booked))
	c.commitFailures.Add(float64(failed))
}
