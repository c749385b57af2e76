package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Recurrence Layer
	RecurrenceOperationsTotal   CounterVec
	RecurrenceOperationDuration HistogramVec

	// Infrastructure Layer
	CacheAccessTotal     CounterVec
	EventsPublishedTotal CounterVec

	// System Health
	BuildInfo GaugeVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultOperationDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Requests currently being served", "method")

	// Recurrence
	m.RecurrenceOperationsTotal = collector.RegisterCounter("recurrence_operations_total", "Series lifecycle operations by outcome", "operation", "outcome")
	m.RecurrenceOperationDuration = collector.RegisterHistogram("recurrence_operation_duration_seconds", "Series lifecycle operation duration", DefaultOperationDurationBuckets, "operation")

	// Infrastructure
	m.CacheAccessTotal = collector.RegisterCounter("cache_access_total", "Summary cache lookups", "result")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Activity events handed to the broker", "result")

	m.BuildInfo = collector.RegisterGauge("build_info", "Build metadata", "version", "commit")

	return m
}

// ObserveOperation records one lifecycle operation.  It satisfies the
// recurrence service's metrics hook.
func (m *AppMetrics) ObserveOperation(operation, outcome string, d time.Duration) {
	m.RecurrenceOperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.RecurrenceOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheAccessTotal.WithLabelValues(result).Inc()
}

func RecordPublish(metrics *AppMetrics, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.EventsPublishedTotal.WithLabelValues(result).Inc()
}

func SetBuildInfo(metrics *AppMetrics, version, commit string) {
	metrics.BuildInfo.WithLabelValues(version, commit).Set(1)
}

//Personal.AI order the ending
