// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and HTTP middleware for monitoring the keygate service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// StoreBuckets defines histogram buckets suited for key-value round trips,
// ranging from 0.5ms to 2.5s.
var StoreBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keygate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// AuthDecisionsTotal counts gate outcomes by terminal state and rejection code.
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_auth_decisions_total",
			Help: "Authentication decisions",
		},
		[]string{"state", "code"},
	)

	// StoreOperationsTotal counts key-value operations by backend, operation, and result.
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_store_operations_total",
			Help: "Store operations",
		},
		[]string{"backend", "op", "result"},
	)

	// StoreOperationDuration records key-value operation latency in seconds.
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keygate_store_operation_duration_seconds",
			Help:    "Store operation latency",
			Buckets: StoreBuckets,
		},
		[]string{"backend", "op"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthDecisionsTotal,
		StoreOperationsTotal,
		StoreOperationDuration,
	)
}
