// Package metrics exposes Prometheus collectors for the link checker.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal                *prometheus.CounterVec
	checkDurationSeconds       *prometheus.HistogramVec
	recordsSkippedTotal        prometheus.Counter
	unresolvedTotal            prometheus.Counter
	inFlightFetches            prometheus.Gauge
	permitWaitSeconds          prometheus.Histogram
	pendingURLs                prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkprobe_checks_total",
				Help: "Total number of URL checks, labeled by outcome and HTTP status class.",
			},
			[]string{"outcome", "status_class"},
		)

		checkDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkprobe_check_duration_seconds",
				Help:    "Histogram of URL check latencies, labeled by outcome.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"outcome"},
		)

		recordsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkprobe_records_skipped_total",
				Help: "Outcomes not written because the URL was already recorded.",
			},
		)

		unresolvedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkprobe_unresolved_total",
				Help: "URLs left unresolved after an unclassified failure.",
			},
		)

		inFlightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkprobe_inflight_fetches",
				Help: "Number of fetches currently holding a permit.",
			},
		)

		permitWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linkprobe_permit_wait_seconds",
				Help:    "Histogram of time spent waiting for a fetch permit.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		pendingURLs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkprobe_pending_urls",
				Help: "URLs scheduled in the current run that have not completed.",
			},
		)

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
	})
}

// ObserveCheck records one classified check. statusClass must come from a
// fixed set (2xx..5xx, other) so the series count stays bounded.
func ObserveCheck(outcome, statusClass string, duration time.Duration) {
	Init()
	checksTotal.WithLabelValues(outcome, statusClass).Inc()
	checkDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveSkippedRecord counts an outcome dropped by the dedup check.
func ObserveSkippedRecord() {
	Init()
	recordsSkippedTotal.Inc()
}

// ObserveUnresolved counts a URL that failed without classification.
func ObserveUnresolved() {
	Init()
	unresolvedTotal.Inc()
}

// IncInFlight increments the in-flight fetch gauge.
func IncInFlight() {
	Init()
	inFlightFetches.Inc()
}

// DecInFlight decrements the in-flight fetch gauge.
func DecInFlight() {
	Init()
	inFlightFetches.Dec()
}

// ObservePermitWait records the time spent acquiring a fetch permit.
func ObservePermitWait(duration time.Duration) {
	Init()
	permitWaitSeconds.Observe(duration.Seconds())
}

// SetPending sets the number of URLs outstanding in the current run.
func SetPending(n int) {
	Init()
	pendingURLs.Set(float64(n))
}

// DecPending marks one pending URL as finished.
func DecPending() {
	Init()
	pendingURLs.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
