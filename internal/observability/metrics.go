package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dumdummies_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dumdummies_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dumdummies_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EventsPublished counts channel events by type and transport.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dumdummies_events_published_total",
		Help: "Channel events published by type and transport",
	}, []string{"type", "transport"})

	// DonationsTotal counts accepted donations.
	DonationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dumdummies_donations_total",
		Help: "Total number of accepted donations",
	})

	// DonatedCentsTotal sums accepted donation amounts in cents.
	DonatedCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dumdummies_donated_cents_total",
		Help: "Sum of accepted donation amounts in cents",
	})

	// ChallengeTransitions counts challenge lifecycle transitions by target status.
	ChallengeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dumdummies_challenge_transitions_total",
		Help: "Challenge lifecycle transitions by resulting status",
	}, []string{"status"})

	// SecurityViolations counts refused creator-only actions.
	SecurityViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dumdummies_security_violations_total",
		Help: "Refused creator-only actions by action",
	}, []string{"action"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
