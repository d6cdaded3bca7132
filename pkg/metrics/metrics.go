// Package metrics exposes Prometheus instrumentation for the scouting engine.
//
// A process-wide Manager owns every collector; the package-level Record*/
// Update* helpers delegate to it so call sites stay one-liners.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "scout"

// Manager owns the Prometheus registry and all engine collectors.
type Manager struct {
	registry  *prometheus.Registry
	namespace string

	passesTotal       *prometheus.CounterVec
	passDuration      prometheus.Histogram
	passProgress      prometheus.Gauge
	observationsTotal *prometheus.CounterVec
	alertsTotal       *prometheus.CounterVec
	alertsSuppressed  prometheus.Counter
	ingestRetries     prometheus.Counter
	ingestFailures    *prometheus.CounterVec
	queueSize         prometheus.Gauge
	assignments       prometheus.Gauge
	competitors       prometheus.Gauge
	storeLatency      prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry supplies a caller-owned registry instead of a fresh one.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager builds a Manager and registers every collector.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		registry:  prometheus.NewRegistry(),
		namespace: defaultNamespace,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initCollectors()
	return m
}

func (m *Manager) initCollectors() {
	ns := m.namespace

	m.passesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "passes_total",
		Help: "Scouting passes finished, by result.",
	}, []string{"result"})

	m.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "pass_duration_seconds",
		Help:    "Wall-clock duration of a full scouting pass.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.passProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "pass_progress",
		Help: "Progress of the in-flight pass, 0-100.",
	})

	m.observationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "observations_total",
		Help: "Raw observations handled, by outcome (processed, invalid, error).",
	}, []string{"outcome"})

	m.alertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "alerts_total",
		Help: "Alerts persisted, by type and severity.",
	}, []string{"type", "severity"})

	m.alertsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "alerts_suppressed_total",
		Help: "Alerts suppressed by the cool-down window.",
	})

	m.ingestRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "ingest_retries_total",
		Help: "Transient ingestion failures that were retried.",
	})

	m.ingestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "ingest_failures_total",
		Help: "Ingestion calls that ultimately failed, by kind (transient, permanent).",
	}, []string{"kind"})

	m.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "queue_size",
		Help: "Assignments waiting in the pass work queue.",
	})

	m.assignments = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "assignments_tracked",
		Help: "Assignments known to the store.",
	})

	m.competitors = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "competitors_tracked",
		Help: "Competitors known to the store.",
	})

	m.storeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "store_latency_ms",
		Help:    "Latency of atomic outcome writes in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_requests_total",
		Help: "HTTP requests served, by endpoint, method, and status code.",
	}, []string{"endpoint", "method", "code"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method"})

	m.registry.MustRegister(
		m.passesTotal, m.passDuration, m.passProgress,
		m.observationsTotal, m.alertsTotal, m.alertsSuppressed,
		m.ingestRetries, m.ingestFailures,
		m.queueSize, m.assignments, m.competitors,
		m.storeLatency, m.httpRequests, m.httpDuration,
	)
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler serving the manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	globalMu sync.RWMutex
	global   = NewManager()
)

// SetGlobal replaces the process-wide manager. Intended for tests that
// need an isolated registry.
func SetGlobal(m *Manager) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if m != nil {
		global = m
	}
}

func get() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// GetRegistry returns the process-wide registry.
func GetRegistry() *prometheus.Registry { return get().Registry() }

// Handler returns the process-wide /metrics handler.
func Handler() http.Handler { return get().Handler() }

// RecordPassFinished counts a finished pass with the given result
// (done, error, canceled).
func RecordPassFinished(result string) { get().passesTotal.WithLabelValues(result).Inc() }

// RecordPassDuration observes the duration of a finished pass.
func RecordPassDuration(seconds float64) { get().passDuration.Observe(seconds) }

// UpdatePassProgress sets the published pass progress gauge.
func UpdatePassProgress(progress int) { get().passProgress.Set(float64(progress)) }

// RecordObservation counts one handled observation by outcome.
func RecordObservation(outcome string) { get().observationsTotal.WithLabelValues(outcome).Inc() }

// RecordAlert counts one persisted alert.
func RecordAlert(alertType, severity string) {
	get().alertsTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordAlertSuppressed counts one alert dropped by the cool-down window.
func RecordAlertSuppressed() { get().alertsSuppressed.Inc() }

// RecordIngestRetry counts one retried transient ingestion failure.
func RecordIngestRetry() { get().ingestRetries.Inc() }

// RecordIngestFailure counts one terminal ingestion failure by kind.
func RecordIngestFailure(kind string) { get().ingestFailures.WithLabelValues(kind).Inc() }

// UpdateQueueSize sets the pass work queue gauge.
func UpdateQueueSize(size int) { get().queueSize.Set(float64(size)) }

// UpdateEntityCounts sets the tracked assignment/competitor gauges.
func UpdateEntityCounts(assignments, competitors int) {
	get().assignments.Set(float64(assignments))
	get().competitors.Set(float64(competitors))
}

// RecordStoreLatency observes one atomic outcome write.
func RecordStoreLatency(latencyMs float64) { get().storeLatency.Observe(latencyMs) }

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(endpoint, method, code string) {
	get().httpRequests.WithLabelValues(endpoint, method, code).Inc()
}

// RecordHTTPRequestDuration observes one served HTTP request's latency.
func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	get().httpDuration.WithLabelValues(endpoint, method).Observe(seconds)
}
