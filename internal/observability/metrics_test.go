package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("requests accumulate per route and status", func(t *testing.T) {
		m := NewMetrics()
		m.RecordRequest("/api/v1/tickets", "GET", 200, 10*time.Millisecond)
		m.RecordRequest("/api/v1/tickets", "GET", 200, 30*time.Millisecond)
		m.RecordRequest("/api/v1/tickets", "POST", 201, 5*time.Millisecond)

		stats := m.RequestStats()
		assert.Equal(t, int64(2), stats["GET /api/v1/tickets 200"].Count)
		assert.Equal(t, 40*time.Millisecond, stats["GET /api/v1/tickets 200"].TotalLatency)
		assert.Equal(t, int64(1), stats["POST /api/v1/tickets 201"].Count)
	})

	t.Run("errors count per domain code", func(t *testing.T) {
		m := NewMetrics()
		m.RecordError("/api/v1/tickets/t-1/arrival", "POST", "CONFLICT")
		m.RecordError("/api/v1/tickets/t-2/arrival", "POST", "CONFLICT")
		m.RecordError("/api/v1/tickets", "POST", "VALIDATION_FAILED")

		counts := m.ErrorCounts()
		assert.Equal(t, int64(2), counts["CONFLICT"])
		assert.Equal(t, int64(1), counts["VALIDATION_FAILED"])
	})

	t.Run("nil receiver is a no-op", func(t *testing.T) {
		var m *Metrics
		m.RecordRequest("/healthz", "GET", 200, time.Millisecond)
		m.RecordError("/healthz", "GET", "INTERNAL_ERROR")
	})
}
