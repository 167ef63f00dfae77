// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Preload Metrics
	PreloadResident = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_preload_resident",
			Help: "Current number of preload pool members across all sessions",
		},
	)

	PreloadQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_preload_queued",
			Help: "Current number of preload requests waiting for a slot",
		},
	)

	PreloadEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_preload_evictions_total",
			Help: "Total number of preload pool evictions",
		},
		[]string{"reason"}, // capacity, idle, released, failed, closed
	)

	PreloadOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_preload_outcomes_total",
			Help: "Total number of completed preparations",
		},
		[]string{"outcome"}, // ready, failed, stale
	)

	// Playback Metrics
	PlaybackTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_playback_transitions_total",
			Help: "Total number of playback state transitions",
		},
		[]string{"from", "to"},
	)

	PlaybackPlaying = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_playback_playing",
			Help: "Current number of playing items across all sessions",
		},
	)

	PlaybackErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_playback_errors_total",
			Help: "Total number of media decode failures",
		},
	)

	PlaybackStaleStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_playback_stale_starts_total",
			Help: "Total number of start signals for items that were no longer active",
		},
	)

	// Engagement Metrics
	EngagementMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_engagement_mutations_total",
			Help: "Total number of reaction mutations by outcome",
		},
		[]string{"op", "outcome"}, // outcome: noop, applied, superseded, confirmed, rejected, stale
	)

	EngagementRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_engagement_rollbacks_total",
			Help: "Total number of optimistic reaction changes rolled back",
		},
	)

	EngagementItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_engagement_items",
			Help: "Current number of media keys held by the reaction ledger",
		},
	)

	// Feed Metrics
	FeedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_feed_sessions",
			Help: "Current number of open feed sessions",
		},
	)

	FeedPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_pages_total",
			Help: "Total number of feed page fetches",
		},
		[]string{"outcome"}, // ok, error
	)

	FeedItemsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_items_rejected_total",
			Help: "Total number of feed items dropped for lacking a media reference",
		},
	)

	// Provider Metrics
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelfeed_provider_request_duration_seconds",
			Help:    "Duration of upstream content and engagement requests",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "operation"},
	)

	ProviderCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_provider_cache_hits_total",
			Help: "Total number of feed page cache hits",
		},
		[]string{"surface"},
	)

	ProviderCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_provider_cache_misses_total",
			Help: "Total number of feed page cache misses",
		},
		[]string{"surface"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_events_published_total",
			Help: "Total number of events published to the internal bus",
		},
		[]string{"topic"},
	)

	EventsPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_events_publish_errors_total",
			Help: "Total number of failed event publications",
		},
		[]string{"topic"},
	)

	// API Endpoint Metrics
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

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
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

	// Anonymous Actor Metrics
	ActorsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_actors_issued_total",
			Help: "Total number of anonymous actor identities issued",
		},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
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

// RecordProviderRequest records one upstream call.
func RecordProviderRequest(service, operation string, duration time.Duration) {
	ProviderRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change. States are
// the gobreaker names ("closed", "half-open", "open").
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(BreakerStateValue(to))
}

// BreakerStateValue maps a breaker state name to its gauge value.
func BreakerStateValue(state string) float64 {
	switch strings.ToLower(state) {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
