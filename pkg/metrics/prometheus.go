// Package metrics provides Prometheus metrics for the bonk game service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Gameplay
	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	targetsSpawned  prometheus.Counter
	targetsHit      prometheus.Counter
	targetsExpired  prometheus.Counter
	staleCallbacks  *prometheus.CounterVec
	finalScore      prometheus.Histogram
	sessionActive   prometheus.Gauge
	themeSelections *prometheus.CounterVec

	// Score submissions
	submissions       *prometheus.CounterVec
	submissionLatency prometheus.Histogram
	storeLatency      *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	storedPlayers     prometheus.Gauge

	// Submission pipeline
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueRejected *prometheus.CounterVec
	workerCount   prometheus.Gauge
	workerLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	sseClients          prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// process is the registry and manager behind the package-level helpers.
type process struct {
	registry *prometheus.Registry
	manager  *Manager
}

var current atomic.Pointer[process] //nolint:gochecknoglobals // swapped by Init

func init() { //nolint:gochecknoinits // collectors must exist before any helper runs
	Init()
}

// Init replaces the process-wide collectors with a fresh registry built
// from opts and returns its manager. Call it at startup, before handlers
// capture GetRegistry.
func Init(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append(append([]Option(nil), opts...), WithPrometheusRegistry(registry))...)
	current.Store(&process{registry: registry, manager: m})
	return m
}

func global() *Manager {
	return current.Load().manager
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bonk",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
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

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.sessionsStarted = m.counterVec("sessions_started_total", "Rounds started, labeled by whether a round was interrupted", "restart")
	m.sessionsEnded = m.counterVec("sessions_ended_total", "Rounds ended, labeled by reason (timeout, stopped)", "reason")
	m.targetsSpawned = m.counter("targets_spawned_total", "Targets shown in a slot")
	m.targetsHit = m.counter("targets_hit_total", "Targets hit before expiry")
	m.targetsExpired = m.counter("targets_expired_total", "Targets that auto-expired unhit")
	m.staleCallbacks = m.counterVec("stale_callbacks_total", "Timer callbacks discarded by the stale guard", "kind")
	m.finalScore = m.histogram("final_score", "Distribution of final round scores", []float64{0, 5, 10, 15, 20, 25, 30, 40})
	m.sessionActive = m.gauge("session_active", "1 while a round is running")
	m.themeSelections = m.counterVec("theme_selections_total", "Theme selections by known/unknown id", "known")

	m.submissions = m.counterVec("score_submissions_total", "Score submissions by result (inserted, updated, unchanged, invalid, failed)", "result")
	m.submissionLatency = m.histogram("score_submission_latency_milliseconds", "End-to-end submission latency in milliseconds", m.histogramBuckets)
	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Score store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Score store failures by operation", "op")
	m.storedPlayers = m.gauge("stored_players", "Distinct player names in the score store at last read")

	m.queueSize = m.gauge("queue_size", "Submissions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum submission queue capacity")
	m.queueRejected = m.counterVec("queue_rejected_total", "Submissions rejected by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Submission workers running")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.sseClients = m.gauge("sse_clients", "Connected render stream clients")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSessionStarted counts a new round; restart is true when a running round was interrupted.
func RecordSessionStarted(restart bool) {
	label := "false"
	if restart {
		label = "true"
	}
	global().sessionsStarted.WithLabelValues(label).Inc()
	global().sessionActive.Set(1)
}

// RecordSessionEnded counts a finished round and observes its score.
func RecordSessionEnded(reason string, score int) {
	global().sessionsEnded.WithLabelValues(reason).Inc()
	global().finalScore.Observe(float64(score))
	global().sessionActive.Set(0)
}

// RecordTargetSpawned increments the spawned targets counter.
func RecordTargetSpawned() { global().targetsSpawned.Inc() }

// RecordTargetHit increments the hit counter.
func RecordTargetHit() { global().targetsHit.Inc() }

// RecordTargetExpired increments the expired counter.
func RecordTargetExpired() { global().targetsExpired.Inc() }

// RecordStaleCallback counts a timer callback dropped by the stale guard.
func RecordStaleCallback(kind string) { global().staleCallbacks.WithLabelValues(kind).Inc() }

// RecordThemeSelection counts a theme change.
func RecordThemeSelection(known bool) {
	label := "false"
	if known {
		label = "true"
	}
	global().themeSelections.WithLabelValues(label).Inc()
}

// RecordSubmission counts a submission outcome and its latency.
func RecordSubmission(result string, latencyMs float64) {
	global().submissions.WithLabelValues(result).Inc()
	global().submissionLatency.Observe(latencyMs)
}

// RecordStoreLatency observes the latency of one store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	global().storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) { global().storeErrors.WithLabelValues(op).Inc() }

// UpdateStoredPlayers sets the number of stored player entries.
func UpdateStoredPlayers(count int) { global().storedPlayers.Set(float64(count)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { global().queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { global().queueCapacity.Set(float64(capacity)) }

// RecordQueueRejected counts an enqueue that did not go through.
func RecordQueueRejected(reason string) { global().queueRejected.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { global().workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes how long a worker spent on one job.
func RecordWorkerProcessingLatency(latencyMs float64) { global().workerLatency.Observe(latencyMs) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// AddSSEClients adjusts the connected render stream client gauge by delta.
func AddSSEClients(delta int) { global().sseClients.Add(float64(delta)) }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { global().systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { global().systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { global().systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}

// RefreshInterval reports how often gauges should be refreshed by pollers.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// RefreshInterval reports the poll interval of the process-wide manager.
func RefreshInterval() time.Duration {
	return global().refreshInterval
}
