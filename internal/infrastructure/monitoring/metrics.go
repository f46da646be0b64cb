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

// Metrics holds all Prometheus metrics. Each instance owns its registry,
// so any number of servers (or tests) can coexist in one process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	ToolErrors   *prometheus.CounterVec

	// Stage registry metrics
	StagesOpen        prometheus.Gauge
	StagesModified    prometheus.Gauge
	StageEvictions    prometheus.Counter
	StageFlushes      *prometheus.CounterVec
	MaintenancePasses *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON status API
type Snapshot struct {
	ToolCalls   int64   `json:"tool_calls"`
	ToolErrors  int64   `json:"tool_errors"`
	Evictions   int64   `json:"evictions"`
	FlushErrors int64   `json:"flush_errors"`
	TotalTime   float64 `json:"total_tool_seconds"`
}

// NewMetrics creates a new metrics collector with a private registry
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
				Name: "scenemcp_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scenemcp_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenemcp_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scenemcp_tool_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 30},
			},
			[]string{"tool"},
		),
		ToolErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenemcp_tool_errors_total",
				Help: "Total number of failed tool invocations by error code",
			},
			[]string{"tool", "code"},
		),

		StagesOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scenemcp_stages_open",
				Help: "Number of stages held by the registry",
			},
		),
		StagesModified: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scenemcp_stages_modified",
				Help: "Number of registry stages with unsaved changes",
			},
		),
		StageEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scenemcp_stage_evictions_total",
				Help: "Total number of stages evicted to stay within capacity",
			},
		),
		StageFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenemcp_stage_flushes_total",
				Help: "Total number of stage flushes by result",
			},
			[]string{"result"},
		),
		MaintenancePasses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenemcp_maintenance_passes_total",
				Help: "Total number of registry maintenance passes by result",
			},
			[]string{"result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scenemcp_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenemcp_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "scenemcp_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the private registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Uptime returns time since the collector was created
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordToolCall records a tool invocation. An empty code means success.
func (m *Metrics) RecordToolCall(tool, code string, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if code != "" {
		status = "error"
		m.ToolErrors.WithLabelValues(tool, code).Inc()
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ToolCalls++
	m.snapshot.TotalTime += duration.Seconds()
	if code != "" {
		m.snapshot.ToolErrors++
	}
	m.mu.Unlock()
}

// SetStages publishes registry occupancy
func (m *Metrics) SetStages(open, modified int) {
	if m == nil {
		return
	}
	m.StagesOpen.Set(float64(open))
	m.StagesModified.Set(float64(modified))
}

// AddEvictions counts capacity evictions
func (m *Metrics) AddEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StageEvictions.Add(float64(n))
	m.mu.Lock()
	m.snapshot.Evictions += int64(n)
	m.mu.Unlock()
}

// RecordFlush counts a stage flush attempt
func (m *Metrics) RecordFlush(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.StageFlushes.WithLabelValues("error").Inc()
		m.mu.Lock()
		m.snapshot.FlushErrors++
		m.mu.Unlock()
		return
	}
	m.StageFlushes.WithLabelValues("ok").Inc()
}

// RecordMaintenancePass counts a scheduler pass
func (m *Metrics) RecordMaintenancePass(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MaintenancePasses.WithLabelValues(result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
