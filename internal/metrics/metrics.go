// Package metrics exposes Prometheus collectors for the backend.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	webhookCallbacksTotal      *prometheus.CounterVec
	renewalChargesTotal        *prometheus.CounterVec
	jobsCreatedTotal           prometheus.Counter
	urlSubmissionsTotal        *prometheus.CounterVec
	wsConnections              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		webhookCallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_callbacks_total",
				Help: "Total payment webhook callbacks, labeled by result.",
			},
			[]string{"result"},
		)

		renewalChargesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_renewal_charges_total",
				Help: "Total recurring charge attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		jobsCreatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "index_jobs_created_total",
				Help: "Total indexing jobs created.",
			},
		)

		urlSubmissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "url_submissions_total",
				Help: "Total URLs submitted to the indexing API, labeled by status.",
			},
			[]string{"status"},
		)

		wsConnections = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ws_connections",
				Help: "Number of currently connected WebSocket clients.",
			},
		)
	})
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// WebhookCallback records a webhook outcome (ok, invalid_signature, not_found, error).
func WebhookCallback(result string) {
	if webhookCallbacksTotal == nil {
		return
	}
	webhookCallbacksTotal.WithLabelValues(result).Inc()
}

// RenewalCharge records a recurring charge outcome (success, failed).
func RenewalCharge(outcome string) {
	if renewalChargesTotal == nil {
		return
	}
	renewalChargesTotal.WithLabelValues(outcome).Inc()
}

// JobCreated increments the created-jobs counter.
func JobCreated() {
	if jobsCreatedTotal == nil {
		return
	}
	jobsCreatedTotal.Inc()
}

// URLSubmission records one URL submission outcome (succeeded, failed).
func URLSubmission(status string) {
	if urlSubmissionsTotal == nil {
		return
	}
	urlSubmissionsTotal.WithLabelValues(status).Inc()
}

// WSConnect and WSDisconnect track the live WebSocket connection gauge.
func WSConnect() {
	if wsConnections != nil {
		wsConnections.Inc()
	}
}

func WSDisconnect() {
	if wsConnections != nil {
		wsConnections.Dec()
	}
}
