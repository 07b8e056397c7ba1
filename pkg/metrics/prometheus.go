// Package metrics provides Prometheus metrics for the sky map service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the sky map service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rendering
	redraws        prometheus.Counter
	redrawDuration prometheus.Histogram
	pathCount      *prometheus.GaugeVec

	// Interaction
	gestures     *prometheus.CounterVec
	zoomClamped  prometheus.Counter
	resizes      prometheus.Counter
	tooltips     *prometheus.CounterVec
	localization *prometheus.CounterVec

	// Sessions
	sessions        prometheus.Gauge
	sessionsEvicted prometheus.Counter

	// Dispatcher
	queueSize         *prometheus.GaugeVec
	queueRejected     *prometheus.CounterVec
	commandLatency    prometheus.Histogram
	commandErrors     *prometheus.CounterVec
	commandDuplicates prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

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
		namespace:        "skymap",
		subsystem:        "map",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.redraws = m.counter("redraws_total", "Total number of full redraws")
	m.redrawDuration = m.histogram("redraw_duration_milliseconds",
		"Time to re-rasterize every layer in milliseconds", m.histogramBuckets)
	m.pathCount = m.gaugeVec("paths", "Paths produced by the last redraw per layer", "layer")

	m.gestures = m.counterVec("gestures_total", "Gestures applied by kind", "kind")
	m.zoomClamped = m.counter("zoom_clamped_total", "Zoom gestures clamped to the scale extent")
	m.resizes = m.counter("resizes_total", "Container resize notifications applied")
	m.tooltips = m.counterVec("tooltips_total", "Tooltip lookups by outcome", "result")
	m.localization = m.counterVec("localizations_total", "Localization updates by outcome", "result")

	m.sessions = m.gauge("sessions", "Live sessions")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Sessions evicted by capacity or idle expiry")

	m.queueSize = m.gaugeVec("queue_size", "Pending commands per dispatcher shard", "shard")
	m.queueRejected = m.counterVec("queue_rejected_total", "Commands rejected before enqueue", "reason")
	m.commandLatency = m.histogram("command_latency_milliseconds",
		"Time from enqueue to applied command in milliseconds", m.histogramBuckets)
	m.commandErrors = m.counterVec("command_errors_total", "Commands that failed by kind", "kind")
	m.commandDuplicates = m.counter("command_duplicates_total", "Retried commands acknowledged without reapplying")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordRedraw counts a redraw and observes its duration.
func RecordRedraw(durationMs float64) {
	globalManager.redraws.Inc()
	globalManager.redrawDuration.Observe(durationMs)
}

// UpdatePathCount sets the number of paths the last redraw produced for a layer.
func UpdatePathCount(layer string, n int) {
	globalManager.pathCount.WithLabelValues(layer).Set(float64(n))
}

// RecordGesture counts an applied gesture.
func RecordGesture(kind string) {
	globalManager.gestures.WithLabelValues(kind).Inc()
}

// RecordZoomClamped counts a zoom that hit the scale extent.
func RecordZoomClamped() {
	globalManager.zoomClamped.Inc()
}

// RecordResize counts an applied resize.
func RecordResize() {
	globalManager.resizes.Inc()
}

// RecordLocalization counts an accepted localization.
func RecordLocalization() {
	globalManager.localization.WithLabelValues("applied").Inc()
}

// RecordLocalizationRejected counts a localization refused before mutation.
func RecordLocalizationRejected(reason string) {
	globalManager.localization.WithLabelValues(reason).Inc()
}

// RecordTooltip counts a tooltip lookup.
func RecordTooltip(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.tooltips.WithLabelValues(result).Inc()
}

// UpdateSessionCount sets the live session gauge.
func UpdateSessionCount(n int) {
	globalManager.sessions.Set(float64(n))
}

// RecordSessionEvicted counts an evicted session.
func RecordSessionEvicted() {
	globalManager.sessionsEvicted.Inc()
}

// UpdateQueueSize sets the pending command count of a shard.
func UpdateQueueSize(shard string, n int) {
	globalManager.queueSize.WithLabelValues(shard).Set(float64(n))
}

// RecordQueueRejected counts a command rejected before enqueue.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordCommandLatency observes enqueue-to-applied latency in milliseconds.
func RecordCommandLatency(latencyMs float64) {
	globalManager.commandLatency.Observe(latencyMs)
}

// RecordCommandError counts a failed command.
func RecordCommandError(kind string) {
	globalManager.commandErrors.WithLabelValues(kind).Inc()
}

// RecordCommandDuplicate counts a retried command that was not reapplied.
func RecordCommandDuplicate() {
	globalManager.commandDuplicates.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
