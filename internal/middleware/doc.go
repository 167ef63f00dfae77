// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package middleware provides chi-compatible HTTP middleware shared by all
routes.

Key Components:

  - RequestID: request and correlation ids for log tracing
  - AccessLog: one debug log line per request
  - PrometheusMetrics: request count, latency and in-flight gauge

Metrics are labelled with the chi route pattern (/api/v1/sessions/{id}),
so the middleware must run inside a chi router. Requests that match no
route are labelled "unmatched".

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

The response writer wrapper supports hijacking, so websocket upgrades can
pass through every middleware in this package.
*/
package middleware
