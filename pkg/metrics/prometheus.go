// Package metrics provides Prometheus metrics for the glider index report generator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report run outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Manager manages all Prometheus metrics for the report generator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Report Metrics - What every run produces
	modelsIngested *prometheus.CounterVec
	reportRuns     *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	classEntries   *prometheus.GaugeVec
	rosterBuckets  *prometheus.GaugeVec
	lastRunUnix    *prometheus.GaugeVec

	// Stage Metrics - Where runs fail and how long export takes
	stageErrors *prometheus.CounterVec
	pdfLatency  prometheus.Histogram

	// Cache Metrics - Engine output reuse in serve mode
	cacheLookups *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// DefaultLatencyBuckets are the millisecond buckets of the run and HTTP
// duration histograms.
func DefaultLatencyBuckets() []float64 {
	return []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}
}

func pdfLatencyBuckets() []float64 {
	return []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gliderindex",
		subsystem:        "reports",
		histogramBuckets: DefaultLatencyBuckets(),
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.modelsIngested = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "models_ingested_total",
			Help:        "Total number of glider models read from input lists",
			ConstLabels: labels,
		},
		[]string{"report"},
	)

	m.reportRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "runs_total",
			Help:        "Total number of report runs by outcome",
			ConstLabels: labels,
		},
		[]string{"report", "status"},
	)

	m.reportDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "run_duration_milliseconds",
			Help:        "Report run duration in milliseconds, ingestion through export",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"report"},
	)

	m.classEntries = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "class_entries",
			Help:        "Number of entries per class in the last run",
			ConstLabels: labels,
		},
		[]string{"report", "class"},
	)

	m.rosterBuckets = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "roster_buckets",
			Help:        "Number of distinct handicap buckets per roster section in the last run",
			ConstLabels: labels,
		},
		[]string{"class"},
	)

	m.lastRunUnix = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "last_run_unix",
			Help:        "Unix timestamp of the last successful run",
			ConstLabels: labels,
		},
		[]string{"report"},
	)

	m.stageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_errors_total",
			Help:        "Total number of failed pipeline stages",
			ConstLabels: labels,
		},
		[]string{"stage"},
	)

	m.pdfLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pdf_export_latency_milliseconds",
		Help:        "PDF export latency in milliseconds",
		Buckets:     pdfLatencyBuckets(),
		ConstLabels: labels,
	})

	m.cacheLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "cache_lookups_total",
			Help:        "Engine output cache lookups by result",
			ConstLabels: labels,
		},
		[]string{"report", "result"},
	)

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds (user experience)",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordModelsIngested adds the number of models read for a report.
func RecordModelsIngested(report string, count int) {
	globalManager.modelsIngested.WithLabelValues(report).Add(float64(count))
}

// RecordReportRun increments the run counter for a report and outcome.
func RecordReportRun(report, status string) {
	globalManager.reportRuns.WithLabelValues(report, status).Inc()
}

// RecordReportDuration records a report run duration in milliseconds.
func RecordReportDuration(report string, durationMs float64) {
	globalManager.reportDuration.WithLabelValues(report).Observe(durationMs)
}

// UpdateClassEntries sets the entry count of one class of a report.
func UpdateClassEntries(report, class string, count int) {
	globalManager.classEntries.WithLabelValues(report, class).Set(float64(count))
}

// UpdateRosterBuckets sets the bucket count of one roster section.
func UpdateRosterBuckets(class string, count int) {
	globalManager.rosterBuckets.WithLabelValues(class).Set(float64(count))
}

// UpdateLastRun stamps the time of the last successful run.
func UpdateLastRun(report string, unix int64) {
	globalManager.lastRunUnix.WithLabelValues(report).Set(float64(unix))
}

// RecordStageError increments the error counter of a pipeline stage.
func RecordStageError(stage string) {
	globalManager.stageErrors.WithLabelValues(stage).Inc()
}

// RecordPDFLatency records PDF export latency in milliseconds.
func RecordPDFLatency(latencyMs float64) {
	globalManager.pdfLatency.Observe(latencyMs)
}

// RecordCacheLookup counts a cache hit or miss for a report.
func RecordCacheLookup(report string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(report, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
