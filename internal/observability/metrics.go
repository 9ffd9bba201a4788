// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe on a nil *Metrics.
type Metrics struct {
	// Replay metrics
	PointsReplayed *prometheus.CounterVec
	WarmupPoints   prometheus.Counter

	// Matching metrics
	OrdersSubmitted *prometheus.CounterVec
	OrdersCancelled *prometheus.CounterVec
	Fills           *prometheus.CounterVec

	// Run metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RunsInFlight  prometheus.Gauge
	OptimizeCombo *prometheus.CounterVec

	// Ingestion metrics
	RecordsImported *prometheus.CounterVec

	// Stream metrics
	StreamClients   prometheus.Gauge
	StreamDropped   prometheus.Counter
	StreamPublished prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "cta_backtester"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Replay metrics
		PointsReplayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "points_total",
			Help:      "Total number of market points replayed by mode",
		}, []string{"mode"}),
		WarmupPoints: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "warmup_points_total",
			Help:      "Total number of warm-up points delivered to strategies",
		}),

		// Matching metrics
		OrdersSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "orders_submitted_total",
			Help:      "Total number of orders accepted by kind",
		}, []string{"kind"}),
		OrdersCancelled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled by kind",
		}, []string{"kind"}),
		Fills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "fills_total",
			Help:      "Total number of fills by direction",
		}, []string{"direction"}),

		// Run metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		RunsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_in_flight",
			Help:      "Number of backtest runs currently executing",
		}),
		OptimizeCombo: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimize",
			Name:      "combinations_total",
			Help:      "Total number of parameter combinations evaluated by status",
		}, []string{"status"}),

		// Ingestion metrics
		RecordsImported: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_imported_total",
			Help:      "Total number of bars or ticks imported",
		}, []string{"kind"}),

		// Stream metrics
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected stream clients",
		}),
		StreamDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_dropped_total",
			Help:      "Total number of stream messages dropped for slow clients",
		}),
		StreamPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_published_total",
			Help:      "Total number of stream messages published",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler exposing the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordPoint counts a replayed point.
func (m *Metrics) RecordPoint(mode string, warmup bool) {
	if m == nil {
		return
	}
	if warmup {
		m.WarmupPoints.Inc()
		return
	}
	m.PointsReplayed.WithLabelValues(mode).Inc()
}

// RecordOrderSubmitted counts an accepted order of kind "limit" or "stop".
func (m *Metrics) RecordOrderSubmitted(kind string) {
	if m == nil {
		return
	}
	m.OrdersSubmitted.WithLabelValues(kind).Inc()
}

// RecordOrderCancelled counts a cancelled order of kind "limit" or "stop".
func (m *Metrics) RecordOrderCancelled(kind string) {
	if m == nil {
		return
	}
	m.OrdersCancelled.WithLabelValues(kind).Inc()
}

// RecordFill counts a fill.
func (m *Metrics) RecordFill(direction string) {
	if m == nil {
		return
	}
	m.Fills.WithLabelValues(direction).Inc()
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsInFlight.Inc()
}

// RunFinished records a run outcome.
func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	if status == "completed" {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordCombination counts an evaluated optimization combination.
func (m *Metrics) RecordCombination(status string) {
	if m == nil {
		return
	}
	m.OptimizeCombo.WithLabelValues(status).Inc()
}

// RecordImported counts imported bars or ticks.
func (m *Metrics) RecordImported(kind string, n int) {
	if m == nil {
		return
	}
	m.RecordsImported.WithLabelValues(kind).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}

// RecordImported counts imported records on DefaultMetrics.
func RecordImported(kind string, n int) {
	DefaultMetrics.RecordImported(kind, n)
}
