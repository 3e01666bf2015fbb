// Package metrics provides Prometheus metrics for the playview service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the playview service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Playback Metrics - What the viewer actually sees
	playsLoaded       prometheus.Counter
	playLoadFailures  *prometheus.CounterVec
	framesRendered    prometheus.Counter
	renderLatency     prometheus.Histogram
	refreshTicks      prometheus.Counter
	playbackRunning   prometheus.Gauge
	playbackPosition  prometheus.Gauge
	playbackFrameSize prometheus.Gauge

	// Resource Metrics
	backgroundReady    prometheus.Gauge
	resourceLoadErrors prometheus.Counter

	// Backend Metrics - Data source round trips
	backendLatency *prometheus.HistogramVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter

	// Queue Metrics - Snapshot queue between controller and encoders
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Encoder / Stream Metrics
	framesEncoded   prometheus.Counter
	framesDropped   *prometheus.CounterVec
	encodeLatency   prometheus.Histogram
	workerCount     prometheus.Gauge
	viewers         prometheus.Gauge
	eventsPublished *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

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
		namespace:        "playview",
		subsystem:        "playback",
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.playsLoaded = m.counter("plays_loaded_total", "Total number of plays loaded into the controller")
	m.playLoadFailures = m.counterVec("play_load_failures_total", "Total number of failed play loads by reason", "reason")
	m.framesRendered = m.counter("frames_rendered_total", "Total number of frames painted onto the surface")
	m.renderLatency = m.histogram("render_latency_milliseconds", "Time spent painting one frame in milliseconds",
		[]float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 33, 66})
	m.refreshTicks = m.counter("refresh_ticks_total", "Total number of display refresh ticks that ran callbacks")
	m.playbackRunning = m.gauge("running", "1 while playback is advancing, 0 otherwise")
	m.playbackPosition = m.gauge("position", "Current frame position within the loaded play")
	m.playbackFrameSize = m.gauge("frame_count", "Number of frames in the loaded play")

	m.backgroundReady = m.gauge("background_ready", "1 once the field background image has been decoded")
	m.resourceLoadErrors = m.counter("resource_load_errors_total", "Total number of background resource load failures")

	m.backendLatency = m.histogramVec("backend_request_duration_milliseconds", "Backend request duration in milliseconds", "endpoint", "status_code")
	m.cacheHits = m.counter("cache_hits_total", "Play cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Play cache misses")

	m.queueSize = m.gauge("queue_size", "Current number of snapshots waiting for encoding")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum snapshot queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Snapshot queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of snapshots enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of snapshots dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected snapshot enqueues")

	m.framesEncoded = m.counter("frames_encoded_total", "Total number of frames encoded to PNG")
	m.framesDropped = m.counterVec("frames_dropped_total", "Total number of frames dropped before reaching a viewer", "stage")
	m.encodeLatency = m.histogram("encode_latency_milliseconds", "PNG encode latency in milliseconds",
		[]float64{1, 2, 5, 10, 20, 50, 100, 250})
	m.workerCount = m.gauge("encoder_workers", "Number of running encoder workers")
	m.viewers = m.gauge("viewers", "Number of connected websocket viewers")
	m.eventsPublished = m.counterVec("events_published_total", "Playback events published to the message bus", "type", "result")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Playback Metrics Functions.

// RecordPlayLoaded increments the plays loaded counter.
func RecordPlayLoaded() {
	globalManager.playsLoaded.Inc()
}

// RecordPlayLoadFailure counts a failed load, labelled by reason (server_error, transport, invalid_id...).
func RecordPlayLoadFailure(reason string) {
	globalManager.playLoadFailures.WithLabelValues(reason).Inc()
}

// RecordFrameRendered counts one painted frame and its latency.
func RecordFrameRendered(latencyMs float64) {
	globalManager.framesRendered.Inc()
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordRefreshTick counts a refresh tick that ran at least one callback.
func RecordRefreshTick() {
	globalManager.refreshTicks.Inc()
}

// UpdatePlaybackRunning sets the running gauge.
func UpdatePlaybackRunning(running bool) {
	if running {
		globalManager.playbackRunning.Set(1)
		return
	}
	globalManager.playbackRunning.Set(0)
}

// UpdatePlaybackPosition sets the position and frame count gauges.
func UpdatePlaybackPosition(index, count int) {
	globalManager.playbackPosition.Set(float64(index))
	globalManager.playbackFrameSize.Set(float64(count))
}

// Resource Metrics Functions.

// UpdateBackgroundReady sets the background readiness gauge.
func UpdateBackgroundReady(ready bool) {
	if ready {
		globalManager.backgroundReady.Set(1)
		return
	}
	globalManager.backgroundReady.Set(0)
}

// RecordResourceLoadError counts a failed background load.
func RecordResourceLoadError() {
	globalManager.resourceLoadErrors.Inc()
}

// Backend Metrics Functions.

// RecordBackendRequest records a backend round trip.
func RecordBackendRequest(endpoint, statusCode string, latencyMs float64) {
	globalManager.backendLatency.WithLabelValues(endpoint, statusCode).Observe(latencyMs)
}

// RecordCacheHit increments the play cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the play cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Encoder / Stream Metrics Functions.

// RecordFrameEncoded counts an encoded frame and its latency.
func RecordFrameEncoded(latencyMs float64) {
	globalManager.framesEncoded.Inc()
	globalManager.encodeLatency.Observe(latencyMs)
}

// RecordFrameDropped counts a dropped frame at the given stage (queue, stale, viewer).
func RecordFrameDropped(stage string) {
	globalManager.framesDropped.WithLabelValues(stage).Inc()
}

// UpdateWorkerCount sets the number of running encoder workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateViewerCount sets the number of connected viewers.
func UpdateViewerCount(count int) {
	globalManager.viewers.Set(float64(count))
}

// RecordEventPublished counts a playback event handed to the message bus.
func RecordEventPublished(eventType, result string) {
	globalManager.eventsPublished.WithLabelValues(eventType, result).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
