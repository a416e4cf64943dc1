// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

// Package metrics holds the Prometheus collectors for the gateway.
// All collectors register with the default registry through promauto and
// are served by the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of registered WebSocket connections",
		},
	)

	WSSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscriptions",
			Help: "Current number of (connection, topic) subscriptions",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of decoded inbound WebSocket frames",
		},
		[]string{"type"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of outbound WebSocket frames queued",
		},
		[]string{"kind"}, // "topic", "user"
	)

	WSDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_decode_failures_total",
			Help: "Total number of inbound frames dropped by the codec or router",
		},
		[]string{"reason"},
	)

	WSHandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_handshake_rejections_total",
			Help: "Total number of WebSocket handshakes rejected",
		},
		[]string{"reason"}, // "no_credentials", "invalid", "expired", "missing_identity"
	)

	WSSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_send_failures_total",
			Help: "Total number of failed sends that deregistered a connection",
		},
		[]string{"reason"}, // "queue_full", "closed"
	)

	WSReaperSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_reaper_sweeps_total",
			Help: "Total number of stale connection sweeps",
		},
	)

	WSReaperRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_reaper_removed_total",
			Help: "Total number of connections removed by the reaper",
		},
	)

	// Relay Metrics
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total number of relay envelopes by direction",
		},
		[]string{"direction"}, // "published", "delivered", "skipped", "invalid"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Directory cache
	DirectoryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_cache_hits_total",
			Help: "Total number of display-name cache hits",
		},
	)

	DirectoryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_cache_misses_total",
			Help: "Total number of display-name cache misses",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordInbound counts a decoded frame by its type.
func RecordInbound(frameType string) {
	WSMessagesReceived.WithLabelValues(frameType).Inc()
}

// RecordDropped counts a frame dropped before dispatch.
func RecordDropped(reason string) {
	WSDecodeFailures.WithLabelValues(reason).Inc()
}

// RecordSent counts n frames queued for delivery.
func RecordSent(kind string, n int) {
	if n > 0 {
		WSMessagesSent.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordSendFailure counts a recipient that was deregistered after a failed send.
func RecordSendFailure(reason string) {
	WSSendFailures.WithLabelValues(reason).Inc()
}

// RecordHandshakeRejection counts a rejected upgrade.
func RecordHandshakeRejection(reason string) {
	WSHandshakeRejections.WithLabelValues(reason).Inc()
}

// RecordReaperSweep records one sweep and the number of entries it removed.
func RecordReaperSweep(removed int) {
	WSReaperSweeps.Inc()
	if removed > 0 {
		WSReaperRemoved.Add(float64(removed))
	}
}

// RecordRelay counts a relay envelope in the given direction.
func RecordRelay(direction string) {
	RelayMessages.WithLabelValues(direction).Inc()
}
