// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package api provides the HTTP layer of Reelfeed.

A feed session can be driven two ways. A websocket connection on /api/v1/ws
opens a session that lives as long as the connection (see package
websocket for the message protocol). Clients that cannot hold a socket
open a polled session with POST /api/v1/sessions; its render states,
media commands and notices collect in a Mailbox until the client drains
them with GET /api/v1/sessions/{id}/events. Polled sessions untouched for
the poll TTL are closed by the PollReaper.

Routes:

	GET    /api/v1/health, /health/live, /health/ready
	GET    /metrics
	GET    /api/v1/ws?surface=feed|profile&owner_id=
	GET    /api/v1/stats
	GET    /api/v1/engagement/reactions
	GET    /api/v1/engagement/counts?owner_id=&source_url=
	POST   /api/v1/sessions
	GET    /api/v1/sessions/{id}
	DELETE /api/v1/sessions/{id}
	GET    /api/v1/sessions/{id}/events
	POST   /api/v1/sessions/{id}/input
	POST   /api/v1/sessions/{id}/more
	POST   /api/v1/sessions/{id}/mute
	POST   /api/v1/sessions/{id}/items/{item}/activate
	POST   /api/v1/sessions/{id}/items/{item}/playback
	POST   /api/v1/sessions/{id}/items/{item}/reaction
	POST   /api/v1/sessions/{id}/items/{item}/retry
	POST   /api/v1/sessions/{id}/items/{item}/media/{started|failed|preloaded}

Every /api/v1 request outside the health routes is attributed to an actor
(package actor). A session is only visible to the actor that opened it;
other actors get 404.

Responses use the models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
	{"status":"error","error":{"code":"UNKNOWN_ITEM","message":"..."},"metadata":{...}}
*/
package api
