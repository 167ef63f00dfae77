// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package websocket is the live transport between a rendering client and its
feed session.

Each connection drives exactly one feed.Session. The Client is the session's
feed.Sink, so render states, media commands and notices produced by the
engine are queued on the connection and written by a dedicated goroutine.
Inputs from the client (layout frames, taps, media element reports) are
decoded, validated and applied to the session in arrival order.

Key Components:

  - Hub: registry of live connections, run under the supervisor
  - Client: one connection with read and write goroutines
  - Dispatch: validates an Inbound message and applies it to a session

Server Messages:

	{"type":"session","data":{"session_id":"...","surface":"feed","reactions":["LIKE"]}}
	{"type":"render","data":{"item_id":"feed-001","playback_state":"playing",...}}
	{"type":"command","data":{"item_id":"feed-001","op":"play"}}
	{"type":"notice","data":{"kind":"engagement_sync_failure","item_id":"feed-001",...}}
	{"type":"ack","data":{"seq":7,"op":"toggle_mute","result":{"muted":false}}}
	{"type":"error","data":{"seq":8,"op":"activate","code":"UNKNOWN_ITEM",...}}

Client Messages:

	{"type":"observe","frame":{"viewport":{"top":0,"height":800},"items":[...]}}
	{"type":"activate","item_id":"feed-002"}
	{"type":"toggle_reaction","seq":9,"item_id":"feed-002","reaction":"LIKE"}
	{"type":"media_failed","item_id":"feed-002","reason":"decode error"}
	{"type":"preload_done","item_id":"feed-003","attempt":12}

Messages carrying a non-zero seq are always answered with an ack or an error.

Backpressure:

The send queue never blocks the engine. When a client falls behind, further
messages are dropped and counted in websocket_errors_total{error_type="send_buffer_full"}.
A later render of the same item supersedes anything lost.

Connection Lifecycle:

 1. The API upgrades the request and creates a Client
 2. A feed session is opened with the Client as its sink
 3. Bind attaches the session and queues the session message
 4. The Client is registered with the Hub and its pumps start
 5. On disconnect the Client unregisters and releases the session

Timeouts:

  - writeWait: 10 seconds per write
  - pongWait: 60 seconds without a pong closes the connection
  - pingPeriod: 54 seconds
*/
package websocket
