// Package metrics provides Prometheus metrics for the VibraPulse dashboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultRefreshInterval is how often polled gauges (queue depth, stored
// reports, memory) are refreshed when no option overrides it.
const defaultRefreshInterval = 10 * time.Second

// Manager manages all Prometheus metrics for the VibraPulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - uploads and what the model said about them
	uploads          *prometheus.CounterVec
	rowsScored       prometheus.Counter
	inferenceLatency prometheus.Histogram
	analysisLatency  prometheus.Histogram
	alerts           *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
	trendOutcomes    *prometheus.CounterVec
	maxRisk          prometheus.Histogram
	duplicateUploads prometheus.Counter

	// Report store
	reportsStored prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Notification queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter

	// Notification workers
	workerCount      prometheus.Gauge
	deliveries       *prometheus.CounterVec
	deliveryLatency  *prometheus.HistogramVec
	workerErrorCount prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
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
		namespace:        "vibrapulse",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	registerer := m.registry
	if len(m.customLabels) > 0 {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels(m.customLabels), registerer)
	}
	auto := promauto.With(registerer)
	if !m.enabled {
		// Metrics still exist so callers never nil-check, they just are not exported.
		auto = promauto.With(nil)
	}

	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("uploads_total"),
		Help:      "Total number of CSV uploads by outcome",
	}, []string{"status"})

	m.rowsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("rows_scored_total"),
		Help:      "Total number of reading rows scored by the classifier",
	})

	m.inferenceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("inference_latency_milliseconds"),
		Help:      "Classifier predict_proba latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("analysis_latency_milliseconds"),
		Help:      "End-to-end analysis latency (parse, infer, derive) in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.alerts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("alerts_total"),
		Help:      "Alert summaries produced, by severity",
	}, []string{"severity"})

	m.recommendations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("recommendations_total"),
		Help:      "Maintenance recommendations emitted, by failure kind",
	}, []string{"kind"})

	m.trendOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("trend_outcomes_total"),
		Help:      "Time-to-failure estimates, by outcome",
	}, []string{"status"})

	m.maxRisk = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("max_risk_percent"),
		Help:      "Distribution of the maximum risk percent per upload",
		Buckets:   []float64{20, 40, 60, 70, 80, 85, 90, 95, 100},
	})

	m.duplicateUploads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("duplicate_uploads_total"),
		Help:      "Uploads whose content was already analyzed recently",
	})

	m.reportsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("reports_stored"),
		Help:      "Number of reports currently held by the report store",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      m.name("http_requests_total"),
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      m.name("http_request_duration_milliseconds"),
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_queue_size"),
		Help:      "Current number of pending notifications",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_queue_capacity"),
		Help:      "Maximum notification queue capacity",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_enqueued_total"),
		Help:      "Total number of notifications enqueued",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_dequeued_total"),
		Help:      "Total number of notifications dequeued",
	})

	m.queueEnqueueError = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_enqueue_errors_total"),
		Help:      "Notifications dropped because the queue was full or closed",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_worker_count"),
		Help:      "Number of notification workers",
	})

	m.deliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_deliveries_total"),
		Help:      "Notification deliveries by sink and outcome",
	}, []string{"sink", "status"})

	m.deliveryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_delivery_latency_milliseconds"),
		Help:      "Notification delivery latency by sink",
		Buckets:   m.histogramBuckets,
	}, []string{"sink"})

	m.workerErrorCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("notify_worker_errors_total"),
		Help:      "Total number of worker errors",
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      m.name("errors_by_component_total"),
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      m.name("errors_by_endpoint_total"),
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("system_memory_usage_bytes"),
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("system_goroutine_count"),
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.name("system_gc_pause_time_milliseconds"),
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordUpload increments the uploads counter for the given outcome
// ("ok", "invalid", "model_error", "too_large").
func RecordUpload(status string) {
	globalManager.uploads.WithLabelValues(status).Inc()
}

// RecordRowsScored adds n to the scored rows counter.
func RecordRowsScored(n int) {
	globalManager.rowsScored.Add(float64(n))
}

// RecordInferenceLatency records classifier latency in milliseconds.
func RecordInferenceLatency(latencyMs float64) {
	globalManager.inferenceLatency.Observe(latencyMs)
}

// RecordAnalysisLatency records end-to-end analysis latency in milliseconds.
func RecordAnalysisLatency(latencyMs float64) {
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordAlert increments the alert counter for a severity.
func RecordAlert(severity string) {
	globalManager.alerts.WithLabelValues(severity).Inc()
}

// RecordRecommendation increments the recommendation counter for a failure kind.
func RecordRecommendation(kind string) {
	globalManager.recommendations.WithLabelValues(kind).Inc()
}

// RecordTrendOutcome increments the trend outcome counter.
func RecordTrendOutcome(status string) {
	globalManager.trendOutcomes.WithLabelValues(status).Inc()
}

// RecordMaxRisk observes the maximum risk of one upload.
func RecordMaxRisk(risk float64) {
	globalManager.maxRisk.Observe(risk)
}

// RecordDuplicateUpload increments the duplicate uploads counter.
func RecordDuplicateUpload() {
	globalManager.duplicateUploads.Inc()
}

// UpdateReportsStored sets the number of stored reports.
func UpdateReportsStored(count int) {
	globalManager.reportsStored.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Notification queue.

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
	globalManager.queueEnqueueError.Inc()
}

// Notification workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordDelivery records one sink delivery attempt and its latency.
func RecordDelivery(sink, status string, latencyMs float64) {
	globalManager.deliveries.WithLabelValues(sink, status).Inc()
	globalManager.deliveryLatency.WithLabelValues(sink).Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorCount.Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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

// RefreshInterval is the polling period for gauges that are sampled rather
// than updated on every event.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// RefreshInterval returns the global manager's gauge polling period.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
