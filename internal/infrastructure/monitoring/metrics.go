package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GenerationsActive  prometheus.Gauge

	// Normalizer metrics
	Normalizations *prometheus.CounterVec
	RepairSteps    *prometheus.CounterVec

	// LLM endpoint metrics
	LLMCalls    *prometheus.CounterVec
	LLMDuration *prometheus.HistogramVec

	// Preview metrics
	Compositions *prometheus.CounterVec
	ScriptErrors *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	generationLatency *LatencyWindow

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	Generations       int64   `json:"generations"`
	Fallbacks         int64   `json:"fallbacks"`
	ScriptErrors      int64   `json:"script_errors"`
	ActiveConnections int64   `json:"active_connections"`
	TotalDuration     float64 `json:"total_duration_seconds"`
	RequestCount      int64   `json:"request_count"`
}

// NewMetrics registers the collectors on reg. Each server owns its own
// registry so several can run in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime:         time.Now(),
		generationLatency: NewLatencyWindow(512),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uibuilder_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uibuilder_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_generations_total",
				Help: "Generations by payload source and outcome",
			},
			[]string{"source", "outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uibuilder_generation_duration_seconds",
				Help:    "End-to-end generation duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 180},
			},
			[]string{"source"},
		),
		GenerationsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "uibuilder_generations_active",
				Help: "Generations currently waiting on the model",
			},
		),

		Normalizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_normalizations_total",
				Help: "Normalizer outcomes by failure kind and stage",
			},
			[]string{"kind", "stage"},
		),
		RepairSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_repair_steps_total",
				Help: "Repair steps that changed a candidate",
			},
			[]string{"step"},
		),

		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_llm_calls_total",
				Help: "Calls to the LLM endpoint",
			},
			[]string{"operation", "status"},
		),
		LLMDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uibuilder_llm_duration_seconds",
				Help:    "LLM endpoint call duration in seconds",
				Buckets: []float64{.05, .25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),

		Compositions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_preview_compositions_total",
				Help: "Preview documents composed, by trigger",
			},
			[]string{"trigger"},
		),
		ScriptErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_preview_script_errors_total",
				Help: "Contained runtime script errors reported by previews",
			},
			[]string{"kind", "origin"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "uibuilder_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uibuilder_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "uibuilder_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	return m
}

// Run updates the uptime gauge until stop is closed.
func (m *Metrics) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-stop:
			return
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordGeneration records one finished generation.
func (m *Metrics) RecordGeneration(source, outcome string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(source, outcome).Inc()
	m.GenerationDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.generationLatency.Observe(duration)

	m.mu.Lock()
	m.snapshot.Generations++
	if source == "fallback" {
		m.snapshot.Fallbacks++
	}
	m.mu.Unlock()
}

// RecordNormalization records a normalizer outcome. kind is "ok" on success.
func (m *Metrics) RecordNormalization(kind, stage string) {
	m.Normalizations.WithLabelValues(kind, stage).Inc()
}

// RecordRepairSteps counts each repair step that changed a candidate.
func (m *Metrics) RecordRepairSteps(steps []string) {
	for _, step := range steps {
		m.RepairSteps.WithLabelValues(step).Inc()
	}
}

// RecordLLMCall records one call to the LLM endpoint.
func (m *Metrics) RecordLLMCall(operation, status string, duration time.Duration) {
	m.LLMCalls.WithLabelValues(operation, status).Inc()
	m.LLMDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordComposition records a composed preview document.
func (m *Metrics) RecordComposition(trigger string) {
	m.Compositions.WithLabelValues(trigger).Inc()
}

// RecordScriptError records a contained script error. origin is "browser"
// for errors forwarded by a preview shell and "harness" for verification.
func (m *Metrics) RecordScriptError(kind, origin string) {
	m.ScriptErrors.WithLabelValues(kind, origin).Inc()
	m.mu.Lock()
	m.snapshot.ScriptErrors++
	m.mu.Unlock()
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// GenerationLatency summarizes recent generation durations.
func (m *Metrics) GenerationLatency() LatencySummary {
	return m.generationLatency.Summary()
}

// Uptime since the collector was created.
func (m *Metrics) UptimeDuration() time.Duration {
	return time.Since(m.startTime)
}
