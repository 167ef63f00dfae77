// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto at
package initialisation, so importing the package is enough to expose them.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Available Metrics

Preload Metrics:
  - reelfeed_preload_resident: Pool members across sessions (gauge)
  - reelfeed_preload_queued: Requests waiting for a slot (gauge)
  - reelfeed_preload_evictions_total: Evictions (counter)
    Labels: reason (capacity, idle, released, failed, closed)
  - reelfeed_preload_outcomes_total: Completed preparations (counter)
    Labels: outcome (ready, failed, stale)

Playback Metrics:
  - reelfeed_playback_transitions_total: State transitions (counter)
    Labels: from, to
  - reelfeed_playback_playing: Playing items across sessions (gauge)
  - reelfeed_playback_errors_total: Decode failures (counter)
  - reelfeed_playback_stale_starts_total: Start signals for inactive items (counter)

Engagement Metrics:
  - reelfeed_engagement_mutations_total: Reaction mutations (counter)
    Labels: op (react, unreact), outcome
  - reelfeed_engagement_rollbacks_total: Optimistic changes undone (counter)
  - reelfeed_engagement_items: Media keys held by the ledger (gauge)

Feed Metrics:
  - reelfeed_feed_sessions: Open sessions (gauge)
  - reelfeed_feed_pages_total: Page fetches (counter)
    Labels: outcome (ok, error)
  - reelfeed_feed_items_rejected_total: Items without a media reference (counter)

Upstream Metrics:
  - reelfeed_provider_request_duration_seconds: Upstream latency (histogram)
    Labels: service, operation
  - reelfeed_provider_cache_hits_total / _misses_total: Page cache (counter)
    Labels: surface
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests (counter)
    Labels: name, result
  - circuit_breaker_state_transitions_total: Transitions (counter)
    Labels: name, from_state, to_state

HTTP and WebSocket Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - websocket_connections, websocket_messages_sent_total,
    websocket_messages_received_total, websocket_errors_total

# Usage Example

	start := time.Now()
	page, err := fetch(ctx)
	metrics.RecordProviderRequest("content", "feed_page", time.Since(start))

# Cardinality

Labels never carry session, actor or media identifiers. Endpoint labels use
the chi route pattern rather than the raw path.
*/
package metrics
