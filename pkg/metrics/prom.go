package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgrest_http_requests_total",
			Help: "Total number of HTTP requests sent to the backend by method and status code",
		},
		[]string{"method", "status"},
	)

	HTTPRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgrest_http_retries_total",
			Help: "Total number of requests retried after a 429 response",
		},
		[]string{"method"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgrest_http_request_duration_seconds",
			Help:    "Duration of a single HTTP attempt, including reading the body",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// StatusTransportError is the status label of an attempt that got no response.
const StatusTransportError = "error"
