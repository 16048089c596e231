// Package metrics exposes the Prometheus collectors for the monitor process.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hlwatch_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlwatch_notifications_created_total",
			Help: "Notifications created by the monitoring engine",
		},
		[]string{"type", "priority"},
	)

	// FetchDuration times upstream info requests per feed.
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hlwatch_fetch_duration_seconds",
			Help:    "Duration of Hyperliquid info requests",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"feed"},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlwatch_fetch_failures_total",
			Help: "Failed Hyperliquid info requests",
		},
		[]string{"feed"},
	)

	RelayDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hlwatch_relay_dropped_total",
			Help: "Events dropped because the relay queue was full",
		},
	)

	RetentionRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hlwatch_retention_removed_total",
			Help: "Notifications removed by the retention sweep",
		},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Repeated calls
// are no-ops.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests, RequestDuration,
			NotificationsCreated, FetchDuration, FetchFailures,
			RelayDropped, RetentionRemoved,
		)
	})
}

// RegisterSessions exposes the number of monitored users as a gauge sampled
// from count at scrape time.
func RegisterSessions(count func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "hlwatch_active_sessions",
			Help: "Users currently being monitored",
		},
		func() float64 { return float64(count()) },
	))
}
