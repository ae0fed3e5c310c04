package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/actions/:id", "POST", 204, 10*time.Millisecond)
	m.RecordRequest("/api/v1/actions/:id", "POST", 204, 30*time.Millisecond)
	m.RecordError("/api/v1/actions/:id", "POST", "CONFLICT")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/actions/:id|POST|204"])
	assert.Equal(t, int64(20), snap.AvgLatencyMillis["/api/v1/actions/:id|POST|204"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/actions/:id|POST|CONFLICT"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Empty(t, m.Snapshot().Requests)
}
