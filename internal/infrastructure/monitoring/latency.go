package monitoring

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyWindow keeps the most recent N durations in a ring buffer.
type LatencyWindow struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// LatencySummary describes a LatencyWindow in milliseconds.
type LatencySummary struct {
	Count  int     `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	StdMS  float64 `json:"std_ms"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	P99MS  float64 `json:"p99_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// NewLatencyWindow creates a window holding size samples.
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 256
	}
	return &LatencyWindow{samples: make([]float64, size)}
}

// Observe adds a sample, evicting the oldest when full.
func (w *LatencyWindow) Observe(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = float64(d) / float64(time.Millisecond)
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Summary computes mean, deviation and quantiles over the window.
func (w *LatencyWindow) Summary() LatencySummary {
	w.mu.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	data := make([]float64, n)
	copy(data, w.samples[:n])
	w.mu.Unlock()

	if n == 0 {
		return LatencySummary{}
	}

	sort.Float64s(data)
	mean, std := stat.MeanStdDev(data, nil)
	if n == 1 {
		std = 0
	}

	return LatencySummary{
		Count:  n,
		MeanMS: mean,
		StdMS:  std,
		P50MS:  stat.Quantile(0.50, stat.Empirical, data, nil),
		P95MS:  stat.Quantile(0.95, stat.Empirical, data, nil),
		P99MS:  stat.Quantile(0.99, stat.Empirical, data, nil),
		MaxMS:  data[n-1],
	}
}
