package observability

import (
	"strconv"
	"sync"
	"time"
)

// RouteStats accumulates volume and latency for one route/status pair.
type RouteStats struct {
	Count        int64
	TotalLatency time.Duration
}

// Metrics keeps in-process counters for the HTTP surface: request volume and
// latency per route, and failure counts per domain error code.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]RouteStats
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]RouteStats),
		errors:   make(map[string]int64),
	}
}

// RecordRequest accumulates count and latency for the route.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := routeKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.requests[key]
	stats.Count++
	stats.TotalLatency += duration
	m.requests[key] = stats
}

// RecordError counts a failed request under its domain error code, so
// conflict, validation, and upstream failures can be told apart.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[code]++
}

// RequestStats returns a copy of the per-route counters.
func (m *Metrics) RequestStats() map[string]RouteStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]RouteStats, len(m.requests))
	for key, stats := range m.requests {
		out[key] = stats
	}
	return out
}

// ErrorCounts returns a copy of the failure counters keyed by domain error
// code.
func (m *Metrics) ErrorCounts() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.errors))
	for code, count := range m.errors {
		out[code] = count
	}
	return out
}

func routeKey(path, method string, status int) string {
	return method + " " + path + " " + strconv.Itoa(status)
}
