package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Channel metrics
	CallsTotal     *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
	PlatformErrors *prometheus.CounterVec
	LaunchesTotal  prometheus.Counter

	// Breaker metrics
	BreakerState *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON health endpoint
type Snapshot struct {
	TotalCalls     int64 `json:"total_calls"`
	FailedCalls    int64 `json:"failed_calls"`
	PlatformErrors int64 `json:"platform_errors"`
	Launches       int64 `json:"launches"`
	WSConnections  int64 `json:"ws_connections"`
}

// NewMetrics creates a collector backed by its own registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appbridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appbridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appbridge_calls_total",
				Help: "Channel method calls by outcome",
			},
			[]string{"method", "outcome"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appbridge_call_duration_seconds",
				Help:    "Channel method call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		PlatformErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appbridge_platform_errors_total",
				Help: "Platform errors raised while querying or launching apps",
			},
			[]string{"method", "kind"},
		),
		LaunchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appbridge_launches_total",
				Help: "Foreground transitions requested on the host",
			},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appbridge_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "appbridge_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appbridge_ws_messages_total",
				Help: "Total number of WebSocket frames",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "appbridge_uptime_seconds",
			Help: "Host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves the metrics in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCall records one completed channel call
func (m *Metrics) RecordCall(method, outcome string, failed bool, duration time.Duration) {
	m.CallsTotal.WithLabelValues(method, outcome).Inc()
	m.CallDuration.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCalls++
	if failed {
		m.snapshot.FailedCalls++
	}
	m.mu.Unlock()
}

// RecordPlatformError records a platform failure of the given kind
// ("error", "timeout", "panic", "circuit_open")
func (m *Metrics) RecordPlatformError(method, kind string) {
	m.PlatformErrors.WithLabelValues(method, kind).Inc()

	m.mu.Lock()
	m.snapshot.PlatformErrors++
	m.mu.Unlock()
}

// RecordLaunch records a foreground transition request
func (m *Metrics) RecordLaunch() {
	m.LaunchesTotal.Inc()

	m.mu.Lock()
	m.snapshot.Launches++
	m.mu.Unlock()
}

// SetBreakerState publishes a breaker's state
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordWSMessage records a WebSocket frame
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
