package metrics

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const divisor = 100

// Metrics holds the Prometheus metric vectors for the dashboard service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WeatherRequestsTotal *prometheus.CounterVec
	WeatherErrorsTotal   *prometheus.CounterVec

	CacheOperationsTotal   *prometheus.CounterVec
	CacheOperationDuration *prometheus.HistogramVec

	UpstreamCallsTotal   *prometheus.CounterVec
	UpstreamCallDuration *prometheus.HistogramVec
}

// NewMetrics constructs and registers all service metrics on the default
// registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests received",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		WeatherRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_requests_total",
				Help:      "Total number of weather dashboard requests",
			},
			[]string{"query_type"},
		),
		WeatherErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_errors_total",
				Help:      "Total number of failed weather dashboard requests",
			},
			[]string{"query_type", "error_type"},
		),
		CacheOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Snapshot cache operation counts",
			},
			[]string{"operation", "result"},
		),
		CacheOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_operation_duration_seconds",
				Help:      "Snapshot cache operation latencies",
			},
			[]string{"operation"},
		),
		UpstreamCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Upstream provider call counts",
			},
			[]string{"endpoint", "outcome"},
		),
		UpstreamCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_call_duration_seconds",
				Help:      "Upstream provider call latencies",
			},
			[]string{"endpoint"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WeatherRequestsTotal,
		m.WeatherErrorsTotal,
		m.CacheOperationsTotal,
		m.CacheOperationDuration,
		m.UpstreamCallsTotal,
		m.UpstreamCallDuration,
	)

	return m
}

// HTTPMiddleware returns a Gin middleware instrumenting HTTP endpoints.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)

		status := c.Writer.Status()
		statusClass := getStatusClass(status)

		m.HTTPRequestsTotal.With(prometheus.Labels{
			"method":       c.Request.Method,
			"endpoint":     c.FullPath(),
			"status_class": statusClass,
		}).Inc()
		m.HTTPRequestDuration.With(prometheus.Labels{
			"method":   c.Request.Method,
			"endpoint": c.FullPath(),
		}).Observe(d.Seconds())

		if c.FullPath() != "/weather" {
			return
		}
		queryType := "coords"
		if c.Query("city") != "" {
			queryType = "city"
		}
		m.WeatherRequestsTotal.WithLabelValues(queryType).Inc()
		if statusClass == "5xx" {
			m.WeatherErrorsTotal.WithLabelValues(queryType, "server_error").Inc()
		}
		if statusClass == "4xx" {
			m.WeatherErrorsTotal.WithLabelValues(queryType, "client_error").Inc()
		}
	}
}

// IncCacheOp counts a cache operation with its result (hit, miss, stale,
// write, error).
func (m *Metrics) IncCacheOp(operation, result string) {
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveCacheOp(operation string, d time.Duration) {
	m.CacheOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncUpstreamCall counts an upstream provider call with its outcome
// (success, error).
func (m *Metrics) IncUpstreamCall(endpoint, outcome string) {
	m.UpstreamCallsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveUpstreamCall(endpoint string, d time.Duration) {
	m.UpstreamCallDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func getStatusClass(code int) string {
	return fmt.Sprintf("%dxx", code/divisor)
}
