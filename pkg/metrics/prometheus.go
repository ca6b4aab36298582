// Package metrics provides Prometheus metrics for the jansou scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// defaultLatencyBuckets covers sub-millisecond lock waits up to multi-second
// transactions. All latency histograms observe milliseconds.
var defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only default

// Manager manages all Prometheus metrics for the jansou service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Session mutations
	sessionMutations *prometheus.CounterVec
	mutationLatency  *prometheus.HistogramVec
	lockWait         prometheus.Histogram

	// Summary recomputation
	summaryRecomputes prometheus.Counter
	recomputeLatency  prometheus.Histogram

	// Group administration
	groupsCreated prometheus.Counter
	playersAdded  prometheus.Counter

	// Standings cache
	standingsCache *prometheus.CounterVec

	// Standings warm-up
	warmJobs       *prometheus.CounterVec
	warmQueueDepth prometheus.Gauge
	warmLatency    prometheus.Histogram

	// Storage
	storeTxLatency         prometheus.Histogram
	storeTxErrors          prometheus.Counter
	repositoryQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "jansou",
		subsystem:       "scoring",
		latencyBuckets:  defaultLatencyBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether periodic collectors should run.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.sessionMutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("session_mutations_total"),
		Help:        "Session submissions, updates and deletions by operation and outcome",
		ConstLabels: labels,
	}, []string{"op", "outcome"})

	m.mutationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("session_mutation_latency_milliseconds"),
		Help:        "End to end latency of session mutations in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	}, []string{"op"})

	m.lockWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("lock_wait_milliseconds"),
		Help:        "Time spent waiting for session and player locks in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.summaryRecomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("summary_recomputes_total"),
		Help:        "Total number of player summaries recomputed",
		ConstLabels: labels,
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("summary_recompute_latency_milliseconds"),
		Help:        "Latency of a single player summary recompute in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.groupsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("groups_created_total"),
		Help:        "Total number of groups created",
		ConstLabels: labels,
	})

	m.playersAdded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("players_added_total"),
		Help:        "Total number of players added to groups",
		ConstLabels: labels,
	})

	m.standingsCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("standings_cache_lookups_total"),
		Help:        "Standings cache lookups by result (hit, miss, error)",
		ConstLabels: labels,
	}, []string{"result"})

	m.warmJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("warm_jobs_total"),
		Help:        "Standings warm-up jobs by result (enqueued, coalesced, dropped, done, failed)",
		ConstLabels: labels,
	}, []string{"result"})

	m.warmQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("warm_queue_depth"),
		Help:        "Standings warm-up jobs waiting for a worker",
		ConstLabels: labels,
	})

	m.warmLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("warm_latency_milliseconds"),
		Help:        "Latency of a standings warm-up in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.storeTxLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_transaction_latency_milliseconds"),
		Help:        "Store transaction latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.storeTxErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_transaction_errors_total"),
		Help:        "Store transactions rolled back",
		ConstLabels: labels,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("repository_query_latency_milliseconds"),
		Help:        "Repository read latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and error type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Session Metrics Functions.

// RecordSessionMutation counts a session mutation. op is submit, update or
// delete; outcome is ok or the error kind.
func RecordSessionMutation(op, outcome string) {
	globalManager.sessionMutations.WithLabelValues(op, outcome).Inc()
}

// RecordMutationLatency records the latency of a session mutation.
func RecordMutationLatency(op string, latencyMs float64) {
	globalManager.mutationLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordLockWait records time spent acquiring mutation locks.
func RecordLockWait(latencyMs float64) {
	globalManager.lockWait.Observe(latencyMs)
}

// RecordSummaryRecompute counts one recomputed summary and its latency.
func RecordSummaryRecompute(latencyMs float64) {
	globalManager.summaryRecomputes.Inc()
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordGroupCreated increments the groups created counter.
func RecordGroupCreated() {
	globalManager.groupsCreated.Inc()
}

// RecordPlayerAdded increments the players added counter.
func RecordPlayerAdded() {
	globalManager.playersAdded.Inc()
}

// RecordStandingsCache counts a standings cache lookup by result.
func RecordStandingsCache(result string) {
	globalManager.standingsCache.WithLabelValues(result).Inc()
}

// RecordWarmJob counts a standings warm-up job by result.
func RecordWarmJob(result string) {
	globalManager.warmJobs.WithLabelValues(result).Inc()
}

// UpdateWarmQueueDepth sets the number of pending warm-up jobs.
func UpdateWarmQueueDepth(n int) {
	globalManager.warmQueueDepth.Set(float64(n))
}

// RecordWarmLatency records the latency of a standings warm-up.
func RecordWarmLatency(latencyMs float64) {
	globalManager.warmLatency.Observe(latencyMs)
}

// Storage Metrics Functions.

// RecordStoreTxLatency records store transaction latency.
func RecordStoreTxLatency(latencyMs float64) {
	globalManager.storeTxLatency.Observe(latencyMs)
}

// RecordStoreTxError increments the rolled back transactions counter.
func RecordStoreTxError() {
	globalManager.storeTxErrors.Inc()
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
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

// Default returns the global manager.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
