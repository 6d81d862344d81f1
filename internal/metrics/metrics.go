// Package metrics provides Prometheus instrumentation for the HTTP surface
// and the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// ConnectionsActive tracks open realtime connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of open websocket connections",
		},
	)

	// EventsTotal counts inbound realtime events by type and outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_total",
			Help: "Inbound websocket events",
		},
		[]string{"event", "outcome"},
	)

	// DeliveriesTotal counts outbound deliveries; dropped means the
	// connection queue was full or closed.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_deliveries_total",
			Help: "Outbound websocket deliveries",
		},
		[]string{"result"},
	)

	// MessagesTotal counts persisted chat messages by entry path.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"path"},
	)

	// PresenceTransitions counts persisted online/offline transitions.
	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_transitions_total",
			Help: "Persisted presence transitions",
		},
		[]string{"state"},
	)
)

func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
}

func RecordEvent(event, outcome string) {
	EventsTotal.WithLabelValues(event, outcome).Inc()
}

func RecordDelivery(delivered bool) {
	if delivered {
		DeliveriesTotal.WithLabelValues("delivered").Inc()
		return
	}
	DeliveriesTotal.WithLabelValues("dropped").Inc()
}

func RecordMessage(path string) {
	MessagesTotal.WithLabelValues(path).Inc()
}

func RecordPresenceTransition(online bool) {
	if online {
		PresenceTransitions.WithLabelValues("online").Inc()
		return
	}
	PresenceTransitions.WithLabelValues("offline").Inc()
}
