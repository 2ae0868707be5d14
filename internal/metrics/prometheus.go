// Package metrics exposes Prometheus metrics for rep counting and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes used as the "outcome" label of frames_processed_total.
const (
	OutcomeDetected   = "detected"
	OutcomeNoPose     = "no_pose"
	OutcomeIncomplete = "incomplete"
	OutcomeError      = "error"
)

// Manager owns one set of fitlock metrics.
type Manager struct {
	namespace         string
	subsystem         string
	latencyBuckets    []float64
	runtimeCollectors bool
	registry          prometheus.Registerer

	framesProcessed *prometheus.CounterVec
	repsCounted     prometheus.Counter
	repsMisaligned  prometheus.Counter
	detectLatency   prometheus.Histogram
	activeSessions  prometheus.Gauge
	goalsReached    prometheus.Counter
	hookRuns        *prometheus.CounterVec
	streamClients   *prometheus.GaugeVec
	cameraFPS       prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

//nolint:gochecknoglobals // process-wide registry served at /metrics
var (
	customRegistry = prometheus.NewRegistry()
	globalManager  *Manager
)

func init() { //nolint:gochecknoinits // metrics must exist before any package records
	globalManager = NewManager(WithPrometheusRegistry(customRegistry), WithRuntimeCollectors(true))
}

// NewManager creates a Manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "fitlock",
		latencyBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	if m.runtimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.framesProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Frames run through the rep counter, by outcome",
	}, []string{"outcome"})

	m.repsCounted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reps_total",
		Help:      "Repetitions counted across all sessions",
	})

	m.repsMisaligned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reps_misaligned_total",
		Help:      "Down transitions rejected because the body was not straight",
	})

	m.detectLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detect_latency_milliseconds",
		Help:      "Pose detection latency per frame in milliseconds",
		Buckets:   m.latencyBuckets,
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory, the default session included",
	})

	m.goalsReached = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "goals_reached_total",
		Help:      "Sessions that reached their rep goal",
	})

	m.hookRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hook_runs_total",
		Help:      "Goal hook executions by result",
	}, []string{"result"})

	m.streamClients = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_clients",
		Help:      "Connected streaming clients by kind (mjpeg, websocket)",
	}, []string{"kind"})

	m.cameraFPS = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "camera_fps",
		Help:      "Current capture rate of the live pipeline",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordFrame increments frames_processed_total for outcome.
func (m *Manager) RecordFrame(outcome string) {
	m.framesProcessed.WithLabelValues(outcome).Inc()
}

// RecordRep counts one rep.
func (m *Manager) RecordRep() {
	m.repsCounted.Inc()
}

// RecordMisalignedRep counts one rejected rep.
func (m *Manager) RecordMisalignedRep() {
	m.repsMisaligned.Inc()
}

// RecordDetectLatency observes a detection latency in milliseconds.
func (m *Manager) RecordDetectLatency(latencyMs float64) {
	m.detectLatency.Observe(latencyMs)
}

// SetActiveSessions sets the session gauge.
func (m *Manager) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// RecordGoalReached counts a session reaching its goal.
func (m *Manager) RecordGoalReached() {
	m.goalsReached.Inc()
}

// RecordHookRun counts a hook execution; result is "ok" or "error".
func (m *Manager) RecordHookRun(result string) {
	m.hookRuns.WithLabelValues(result).Inc()
}

// AddStreamClients adjusts the stream client gauge for kind by delta.
func (m *Manager) AddStreamClients(kind string, delta int) {
	m.streamClients.WithLabelValues(kind).Add(float64(delta))
}

// SetCameraFPS sets the live pipeline capture rate.
func (m *Manager) SetCameraFPS(fps int) {
	m.cameraFPS.Set(float64(fps))
}

// RecordHTTPRequest records one HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Default returns the process-wide Manager registered on GetRegistry.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
