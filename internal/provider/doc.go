// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package provider implements the upstream collaborators of the feed engine.

ContentClient implements feed.Catalog over the content provider's HTTP API
and EngagementClient implements engagement.Service over the engagement
service's API. Both share one JSON client with:

  - a token bucket limiter (golang.org/x/time/rate)
  - a circuit breaker (sony/gobreaker) that ignores 4xx responses and caller cancellation
  - request latency histograms and breaker metrics

Feed pages are cached per cursor in an expirable LRU since a cursor always
names the same page.

DemoCatalog and MemoryEngagement are in-memory stand-ins used when no
upstream URL is configured and by the simulate command.
*/
package provider
