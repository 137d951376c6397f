package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors shared by the engine and the HTTP surface

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indicator_compute_duration_seconds",
			Help:    "Duration of a single indicator computation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"type"},
	)

	ComputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_compute_total",
			Help: "Total number of indicator computations by outcome",
		},
		[]string{"type", "status"},
	)

	OverlayInstances = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_instances",
			Help: "Number of indicator instances held by the registry",
		},
	)

	OverlayOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_operations_total",
			Help: "Total number of registry operations",
		},
		[]string{"operation"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
