package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordPoint("bar", false)
	m.RecordOrderSubmitted("limit")
	m.RecordOrderCancelled("stop")
	m.RecordFill("LONG")
	m.RunStarted()
	m.RunFinished("completed", time.Second)
	m.RecordCombination("completed")
	m.RecordImported("bar", 3)
	m.RecordDBQuery("postgres", "insert", 0.1, errors.New("boom"))
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordPoint("bar", false)
	m.RecordPoint("bar", false)
	m.RecordPoint("bar", true)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PointsReplayed.WithLabelValues("bar")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WarmupPoints))

	m.RunStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsInFlight))
	m.RunFinished("completed", 2*time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RunsInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessfulRun), float64(0))

	m.RecordDBQuery("postgres", "insert", 0.01, nil)
	m.RecordDBQuery("postgres", "insert", 0.01, errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert")))
}

func TestMetrics_FailedRunKeepsHealthTimestamp(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.RunStarted()
	m.RunFinished("failed", time.Millisecond)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.LastSuccessfulRun))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordFill("LONG")

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_matching_fills_total{direction="LONG"} 1`)
}
