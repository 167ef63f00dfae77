// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/reelfeed/internal/actor"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/validation"
	ws "github.com/tomtom215/reelfeed/internal/websocket"
)

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; an empty one would bypass CORS.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket opens a feed session driven over a websocket connection. The
// session lives exactly as long as the connection.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.hub.Running() {
		logging.Warn().Msg("WebSocket connection rejected: hub not running")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	req := models.OpenSessionRequest{
		Surface: r.URL.Query().Get("surface"),
		OwnerID: r.URL.Query().Get("owner_id"),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	a, _ := actor.FromContext(r.Context())
	client := ws.NewClient(h.hub, conn, h.cfg.WebSocket)
	s, err := h.manager.Open(r.Context(), feed.SessionOptions{
		Actor:   a.ID,
		Surface: feed.Surface(req.Surface),
		OwnerID: req.OwnerID,
		Sink:    client,
	})
	if err != nil {
		logging.Warn().Err(err).Str("actor_id", a.ID).Msg("WebSocket session open failed")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable"))
		_ = conn.Close()
		return
	}

	id := s.ID()
	client.Bind(s, h.cfg.Reactions, func() {
		if err := h.manager.Close(id); err != nil {
			logging.Debug().Err(err).Str("session_id", id).Msg("Session already closed")
		}
	})
	if !h.hub.Add(client) {
		client.Abort()
		return
	}
	client.Start()
}
