// Package metrics provides Prometheus metrics for the hackjudge service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Judging
	scoreWrites        *prometheus.CounterVec
	scoreRejections    *prometheus.CounterVec
	scoreRetries       prometheus.Counter
	shortlistRuns      *prometheus.CounterVec
	shortlistSelected  prometheus.Histogram
	shortlistToggles   *prometheus.CounterVec
	eligibilityChecks  *prometheus.CounterVec
	autoDistributeRuns prometheus.Counter
	assignmentLoad     prometheus.Histogram
	aggregateRebuilds  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store and locking
	storeLatency *prometheus.HistogramVec
	lockWait     prometheus.Histogram
	lockFailures prometheus.Counter

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hackjudge",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	countBuckets := []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500}

	m.scoreWrites = m.counterVec("score_writes_total",
		"Score entries written, by outcome (created or updated)", "outcome")
	m.scoreRejections = m.counterVec("score_rejections_total",
		"Score submissions rejected by validation, by error kind", "kind")
	m.scoreRetries = m.counter("score_retries_total",
		"Score upserts retried after a transient store failure")
	m.shortlistRuns = m.counterVec("shortlist_runs_total",
		"Shortlisting runs, by mode", "mode")
	m.shortlistSelected = m.histogram("shortlist_selected",
		"Number of submissions selected per shortlisting run", countBuckets)
	m.shortlistToggles = m.counterVec("shortlist_toggles_total",
		"Manual shortlist toggles, by resulting status", "status")
	m.eligibilityChecks = m.counterVec("eligibility_checks_total",
		"Eligibility decisions, by outcome and matching representation", "outcome", "matched_by")
	m.autoDistributeRuns = m.counter("auto_distribute_runs_total",
		"Auto-distribute partition recomputations")
	m.assignmentLoad = m.histogram("assignment_load",
		"Submissions assigned per judge by auto-distribute", countBuckets)
	m.aggregateRebuilds = m.counterVec("aggregate_rebuilds_total",
		"Aggregate cache rebuilds, by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds",
		"Latency of store operations in milliseconds", "operation")
	m.lockWait = m.histogram("round_lock_wait_milliseconds",
		"Time spent acquiring a round lock", m.histogramBuckets)
	m.lockFailures = m.counter("round_lock_failures_total",
		"Round lock acquisitions that failed or timed out")

	m.queueSize = m.gauge("queue_size", "Current number of queued rebuild jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued rebuild jobs")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Rebuild jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Rebuild jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rebuild jobs rejected by the queue")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of rebuild workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Rebuild job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Rebuild jobs that failed")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Judging metrics.

// RecordScoreWrite counts a persisted score entry; outcome is "created" or "updated".
func RecordScoreWrite(outcome string) {
	globalManager.scoreWrites.WithLabelValues(outcome).Inc()
}

// RecordScoreRejected counts a score submission rejected with the given error kind.
func RecordScoreRejected(kind string) {
	globalManager.scoreRejections.WithLabelValues(kind).Inc()
}

// RecordScoreRetry counts a retried score upsert.
func RecordScoreRetry() {
	globalManager.scoreRetries.Inc()
}

// RecordShortlistRun counts a shortlisting run and its selection size.
func RecordShortlistRun(mode string, selected int) {
	globalManager.shortlistRuns.WithLabelValues(mode).Inc()
	globalManager.shortlistSelected.Observe(float64(selected))
}

// RecordShortlistToggle counts a manual toggle by resulting status.
func RecordShortlistToggle(status string) {
	globalManager.shortlistToggles.WithLabelValues(status).Inc()
}

// RecordEligibilityCheck counts an eligibility decision.
func RecordEligibilityCheck(eligible bool, matchedBy string) {
	outcome := "ineligible"
	if eligible {
		outcome = "eligible"
	}
	if matchedBy == "" {
		matchedBy = "none"
	}
	globalManager.eligibilityChecks.WithLabelValues(outcome, matchedBy).Inc()
}

// RecordAutoDistribute counts an auto-distribute run and each judge's load.
func RecordAutoDistribute(loads []int) {
	globalManager.autoDistributeRuns.Inc()
	for _, l := range loads {
		globalManager.assignmentLoad.Observe(float64(l))
	}
}

// RecordAggregateRebuild counts a rebuilt aggregate; outcome is "ok" or "error".
func RecordAggregateRebuild(outcome string) {
	globalManager.aggregateRebuilds.WithLabelValues(outcome).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Store and lock metrics.

// RecordStoreLatency records the latency of a named store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordLockWait records how long a round lock took to acquire.
func RecordLockWait(latencyMs float64) {
	globalManager.lockWait.Observe(latencyMs)
}

// RecordLockFailure counts a failed round lock acquisition.
func RecordLockFailure() {
	globalManager.lockFailures.Inc()
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records rebuild job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
