// Package metrics declares the Prometheus collectors for the jobs service.
// promauto registers them with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_http_requests_total",
			Help: "Total number of http requests handled by the jobs service.",
		},
		[]string{"route", "method", "code"},
	)

	// HTTPRequestDuration observes handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_http_request_duration_seconds",
			Help:    "Latency of http requests handled by the jobs service.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// DependencyUp is 1 when the last probe of a dependency succeeded, 0 otherwise.
	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_dependency_up",
			Help: "Whether a backing dependency answered its last health probe.",
		},
		[]string{"dependency"},
	)
)
