package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// Load pipeline
	LoadsTotal        *prometheus.CounterVec
	LoadFailuresTotal *prometheus.CounterVec
	LoadDuration      prometheus.Histogram
	RowsLoaded        *prometheus.GaugeVec
	ArchiveFailures   prometheus.Counter

	// API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Analysis
	SummaryDuration  prometheus.Histogram
	ProductsDuration prometheus.Histogram
	ExportsTotal     *prometheus.CounterVec
}

// NewCollector registers the application metrics on the default registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith registers the metrics on a specific registerer. Tests
// pass a fresh registry so repeated construction cannot collide.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		LoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of successful dataset loads by section",
			},
			[]string{"section"},
		),

		LoadFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "load_failures_total",
				Help:      "Total number of failed dataset loads by section",
			},
			[]string{"section"},
		),

		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of load operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
		),

		RowsLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_loaded",
				Help:      "Rows in the currently loaded table by section",
			},
			[]string{"section"},
		),

		ArchiveFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_failures_total",
				Help:      "Total number of snapshot archive write failures",
			},
		),

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
			},
			[]string{"endpoint"},
		),

		SummaryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summary_duration_seconds",
				Help:      "Duration of summary computation in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),

		ProductsDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "products_duration_seconds",
				Help:      "Duration of derived-series computation in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),

		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of exports by format",
			},
			[]string{"format"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer against a histogram
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordLoad records a successful load and the resulting table size
func (c *Collector) RecordLoad(section string, rows int) {
	c.LoadsTotal.WithLabelValues(section).Inc()
	c.RowsLoaded.WithLabelValues(section).Set(float64(rows))
}

// RecordLoadFailure increments the load failure counter
func (c *Collector) RecordLoadFailure(section string) {
	c.LoadFailuresTotal.WithLabelValues(section).Inc()
}

// RecordArchiveFailure increments the archive failure counter
func (c *Collector) RecordArchiveFailure() {
	c.ArchiveFailures.Inc()
}

// RecordAPIRequest increments the API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordExport increments the export counter for a format
func (c *Collector) RecordExport(format string) {
	c.ExportsTotal.WithLabelValues(format).Inc()
}
