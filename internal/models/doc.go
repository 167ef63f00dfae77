// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package models defines the HTTP API envelope and request bodies.

Engine types (render states, media commands, counts) live with the engine
packages and are embedded in APIResponse.Data as-is. This package only holds
what is specific to the HTTP surface:

  - APIResponse, Metadata, APIError: the response envelope
  - HealthStatus, ComponentHealth: health endpoint body
  - OpenSessionRequest, ReactionRequest, MediaReportRequest: request bodies,
    validated with go-playground/validator tags
*/
package models
