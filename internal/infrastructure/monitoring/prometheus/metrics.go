package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Standardization
	StandardizationsTotal   CounterVec
	StandardizationDuration HistogramVec
	BatchSize               HistogramVec
	ChargeEventsTotal       CounterVec
	CatalogPairs            GaugeVec

	// Result cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	BuildInfo GaugeVec

	cacheName string
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRunDurationBuckets  = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultBatchSizeBuckets    = []float64{1, 10, 50, 100, 500, 1000, 5000}
)

// NewAppMetrics registers all metrics. cacheName labels the cache
// counters (memory, redis).
func NewAppMetrics(collector MetricsCollector, cacheName string) *AppMetrics {
	m := &AppMetrics{cacheName: cacheName}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests")

	m.StandardizationsTotal = collector.RegisterCounter("standardizations_total", "Molecules standardized", "operations", "status")
	m.StandardizationDuration = collector.RegisterHistogram("standardization_duration_seconds", "Per-molecule standardization duration", DefaultRunDurationBuckets, "operations")
	m.BatchSize = collector.RegisterHistogram("batch_size", "Molecules per batch request", DefaultBatchSizeBuckets, "source")
	m.ChargeEventsTotal = collector.RegisterCounter("charge_events_total", "Charge mutations and aborts", "kind", "reason")
	m.CatalogPairs = collector.RegisterGauge("catalog_pairs", "Acid/base pairs in the loaded catalog")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Result cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Result cache misses", "cache")

	m.BuildInfo = collector.RegisterGauge("build_info", "Build information", "version")
	return m
}

// ObserveStandardization records one molecule run.
func (m *AppMetrics) ObserveStandardization(operations, status string, d time.Duration) {
	m.StandardizationsTotal.WithLabelValues(operations, status).Inc()
	if status != "error" {
		m.StandardizationDuration.WithLabelValues(operations).Observe(d.Seconds())
	}
}

// ObserveCache records a result cache lookup.
func (m *AppMetrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(m.cacheName).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(m.cacheName).Inc()
	}
}

func RecordHTTPRequest(metrics *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordBatch(metrics *AppMetrics, source string, size int) {
	metrics.BatchSize.WithLabelValues(source).Observe(float64(size))
}
