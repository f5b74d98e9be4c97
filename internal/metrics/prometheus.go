// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
	ratingRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_rating_recomputes_total",
			Help: "Number of product rating recomputations.",
		},
	)
	eventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_event_publish_failures_total",
			Help: "Domain events that could not be published.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, ratingRecomputes, eventPublishFailures)
}

// RecordRequest records one served HTTP request.  route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordRatingRecompute counts one rating recomputation.
func RecordRatingRecompute() { ratingRecomputes.Inc() }

// RecordPublishFailure counts an event that could not be delivered.
func RecordPublishFailure(eventType string) {
	eventPublishFailures.WithLabelValues(eventType).Inc()
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
