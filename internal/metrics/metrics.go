// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "monfournisseur"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size distribution",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Business metrics
var (
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Total number of price quotes computed",
		},
		[]string{"tier"}, // tier label such as "5-9", or "base"
	)

	LeadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_total",
			Help:      "Total number of lead submissions by outcome",
		},
		[]string{"status"}, // "accepted", "invalid", "rejected" or "failed"
	)

	LeadSubmitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_submit_duration_seconds",
			Help:      "Latency of calls to the lead endpoint",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Total number of product thumbnails served",
		},
		[]string{"status"}, // "hit", "generated" or "failed"
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by a rate limiter",
		},
		[]string{"scope"},
	)
)
