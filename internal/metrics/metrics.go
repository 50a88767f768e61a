package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks login attempts by outcome (success, invalid_credentials,
	// invalid_otp, error).
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wstrade_logins_total",
			Help: "Total number of login attempts by outcome.",
		},
		[]string{"result"},
	)

	// Tracks token refreshes by outcome (success, no_refresh_token,
	// rejected, error).
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wstrade_token_refreshes_total",
			Help: "Total number of access token refreshes by outcome.",
		},
		[]string{"result"},
	)

	// Tracks the number of outbound API calls to the trade service.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wstrade_api_requests_total",
			Help: "Total number of trade API requests made (by method and status).",
		},
		[]string{"method", "status"},
	)

	// Measures duration of API requests to the trade service.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wstrade_api_request_duration_seconds",
			Help:    "Duration of trade API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"method"},
	)
)

// ObserveRequest records one completed API request.
func ObserveRequest(method, status string, start time.Time) {
	APIRequestsTotal.WithLabelValues(method, status).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
