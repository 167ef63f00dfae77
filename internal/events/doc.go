// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package events carries domain events out of the feed engine.

Playback transitions, engagement changes and session lifecycle events are
published as JSON on an in-process Watermill GoChannel bus. The Router
consumes them with recovery and retry middleware into a Stats projection
served by the API.

Publishing is fire-and-forget: a full or missing subscriber never blocks
the engine, and events published before the router runs are dropped.
Delivery order between events is not guaranteed; consumers must not
depend on it.
*/
package events
