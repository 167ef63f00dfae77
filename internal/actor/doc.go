// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package actor resolves the identity engagement is deduplicated on: an
// authenticated user id supplied by the auth proxy, or a durable anonymous
// id kept in a cookie and registered in BadgerDB.
package actor
