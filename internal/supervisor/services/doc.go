// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package services adapts components whose lifecycle does not already match
suture's Serve(ctx) pattern.

Most Reelfeed components (feed.Manager, websocket.Hub, events.Router,
api.PollReaper) implement suture.Service directly and are added to the tree
as they are. The HTTP server is the exception: http.Server blocks in Serve
and stops through Shutdown, so HTTPServerService translates between the
two and rebinds its listener on every restart.
*/
package services
