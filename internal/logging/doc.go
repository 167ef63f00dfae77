// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package logging provides centralized zerolog-based structured logging for Reelfeed.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once through Init
//   - JSON output for production and console output for development
//   - Context-aware logging carrying correlation, request and actor ids
//   - An slog adapter for libraries that only accept *slog.Logger
//   - Helpers that mask actor ids and signed media URLs before they are logged
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int("port", 3857).Msg("Server starting")
//
//	log := logging.WithComponent("preload")
//	log.Debug().Str("media_id", id).Msg("Preparing media")
//
//	logging.CtxWarn(ctx).Err(err).Msg("First feed page unavailable")
//
// # Configuration
//
// Environment Variables (read by internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Sessions
//
// Each feed session gets a context whose correlation id is the first eight
// characters of the session id, so every line a session produces (feed,
// playback, preload and engagement) can be grepped together.
//
// # Privacy
//
// Actor ids are masked by SanitizeActorID when added through Ctx. Media URLs
// frequently carry CDN signatures in the query string; log them through
// SanitizeURL.
//
// # slog Integration
//
// Suture's event hook and the watermill bus log through slog:
//
//	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
//	wmLogger := watermill.NewSlogLogger(logging.NewSlogLoggerFor("events"))
package logging
