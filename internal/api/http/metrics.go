package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
)

// MetricsReport is the JSON view of the collectors.
type MetricsReport struct {
	Timestamp         time.Time                  `json:"timestamp"`
	Backend           monitoring.MetricsSnapshot `json:"backend"`
	GenerationLatency monitoring.LatencySummary  `json:"generation_latency"`
	Summary           MetricsSummary             `json:"summary"`
	Sandbox           map[string]interface{}     `json:"sandbox,omitempty"`
}

// MetricsSummary provides high-level metrics.
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	FallbackRate      float64 `json:"fallback_rate"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// MetricsJSON returns a snapshot with generation latency quantiles.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	snap := h.metrics.Snapshot()
	report := MetricsReport{
		Timestamp:         time.Now().UTC(),
		Backend:           snap,
		GenerationLatency: h.metrics.GenerationLatency(),
		Summary:           summarize(snap, h.metrics.UptimeDuration()),
	}
	if h.harness != nil {
		report.Sandbox = h.harness.Stats()
	}
	c.JSON(http.StatusOK, report)
}

func summarize(snap monitoring.MetricsSnapshot, uptime time.Duration) MetricsSummary {
	s := MetricsSummary{
		TotalRequests:     snap.TotalRequests,
		ActiveConnections: snap.ActiveConnections,
		UptimeSeconds:     uptime.Seconds(),
	}
	if snap.RequestCount > 0 {
		s.AverageLatencyMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	if snap.TotalRequests > 0 {
		s.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	if snap.Generations > 0 {
		s.FallbackRate = float64(snap.Fallbacks) / float64(snap.Generations)
	}
	return s
}
