// Package metrics provides Prometheus metrics for the conftix registration service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	sizeBuckets      []float64
	registry         prometheus.Registerer

	// Submission flow
	submissions         *prometheus.CounterVec
	submissionDuplicate prometheus.Counter
	pipelineRuns        *prometheus.CounterVec
	stageLatency        *prometheus.HistogramVec

	// Avatar pipeline
	avatarCompressions *prometheus.CounterVec
	avatarBytes        prometheus.Histogram

	// Live feedback
	handleChecks      *prometheus.CounterVec
	suggestionSearch  *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	storedOutcomes    prometheus.Gauge
	outboundRequests  *prometheus.CounterVec
	outboundLatency   *prometheus.HistogramVec
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueueError *prometheus.CounterVec
	workerCount       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "conftix",
		subsystem:        "registration",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		sizeBuckets:      prometheus.ExponentialBuckets(4096, 2, 10),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Form submissions by outcome (accepted, invalid, busy)",
	}, []string{"outcome"})

	m.submissionDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_triggers_duplicate_total",
		Help:      "Capture/upload triggers suppressed because the request id already ran",
	})

	m.pipelineRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticket_pipeline_total",
		Help:      "Ticket pipeline completions by result and failing stage",
	}, []string{"result", "stage"})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticket_stage_latency_milliseconds",
		Help:      "Latency of each ticket pipeline stage in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})

	m.avatarCompressions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "avatar_compressions_total",
		Help:      "Avatar compression attempts by result",
	}, []string{"result"})

	m.avatarBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "avatar_output_bytes",
		Help:      "Size of compressed avatars in bytes",
		Buckets:   m.sizeBuckets,
	})

	m.handleChecks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "handle_checks_total",
		Help:      "Handle existence checks by result (exists, missing, error, stale)",
	}, []string{"result"})

	m.suggestionSearch = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggestion_searches_total",
		Help:      "Handle suggestion searches by result (ok, error, cancelled, stale)",
	}, []string{"result"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Number of live form sessions",
	})

	m.storedOutcomes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticket_outcomes_stored",
		Help:      "Number of ticket outcomes held by the repository",
	})

	m.outboundRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outbound_requests_total",
		Help:      "Requests to external collaborators by target and status class",
	}, []string{"target", "status"})

	m.outboundLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outbound_request_duration_milliseconds",
		Help:      "Duration of requests to external collaborators in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"target"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of ticket jobs waiting for a worker",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of queued ticket jobs",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue size divided by capacity",
	})

	m.queueEnqueueError = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Rejected ticket jobs by reason",
	}, []string{"reason"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of ticket workers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
}

// Submission flow

func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

func RecordDuplicateTrigger() {
	globalManager.submissionDuplicate.Inc()
}

// RecordPipelineResult counts a finished pipeline; stage is empty on success.
func RecordPipelineResult(result, stage string) {
	globalManager.pipelineRuns.WithLabelValues(result, stage).Inc()
}

func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// Avatar pipeline

func RecordAvatarCompression(result string) {
	globalManager.avatarCompressions.WithLabelValues(result).Inc()
}

func RecordAvatarBytes(n int) {
	globalManager.avatarBytes.Observe(float64(n))
}

// Live feedback

func RecordHandleCheck(result string) {
	globalManager.handleChecks.WithLabelValues(result).Inc()
}

func RecordSuggestionSearch(result string) {
	globalManager.suggestionSearch.WithLabelValues(result).Inc()
}

func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

func UpdateStoredOutcomes(n int) {
	globalManager.storedOutcomes.Set(float64(n))
}

// Outbound collaborators

func RecordOutboundRequest(target, status string, latencyMs float64) {
	globalManager.outboundRequests.WithLabelValues(target, status).Inc()
	globalManager.outboundLatency.WithLabelValues(target).Observe(latencyMs)
}

// Queue & workers

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueError.WithLabelValues(reason).Inc()
}

func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// HTTP

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// StatusClass buckets an HTTP status code (or 0 for transport errors) for labels.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
