// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/models"
	ws "github.com/tomtom215/reelfeed/internal/websocket"
)

// DefaultPollSessionTTL closes polled sessions nobody touched for this long.
const DefaultPollSessionTTL = 5 * time.Minute

// HandlerConfig holds handler settings.
type HandlerConfig struct {
	Version string

	// Reactions are the enabled reaction types, announced to clients.
	Reactions []string

	// CORSOrigins also governs websocket origins. "*" allows any.
	CORSOrigins []string

	WebSocket ws.Config

	PollSessionTTL time.Duration
	MailboxLimit   int
}

// HealthCheck reports the health of one dependency.
type HealthCheck func() models.ComponentHealth

// Handler serves the HTTP API.
type Handler struct {
	cfg       HandlerConfig
	manager   *feed.Manager
	hub       *ws.Hub
	stats     *events.Stats
	checks    map[string]HealthCheck
	startTime time.Time

	mu     sync.Mutex
	polled map[string]*polledSession
}

// polledSession is a session driven over plain HTTP.
type polledSession struct {
	mailbox  *Mailbox
	lastSeen time.Time
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithHealthCheck adds a dependency to the health endpoints.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) { h.checks[name] = check }
}

// WithStats exposes the event projection on the stats endpoint.
func WithStats(stats *events.Stats) HandlerOption {
	return func(h *Handler) { h.stats = stats }
}

// NewHandler creates the API handler.
func NewHandler(cfg HandlerConfig, manager *feed.Manager, hub *ws.Hub, opts ...HandlerOption) *Handler {
	if cfg.PollSessionTTL <= 0 {
		cfg.PollSessionTTL = DefaultPollSessionTTL
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	h := &Handler{
		cfg:       cfg,
		manager:   manager,
		hub:       hub,
		checks:    make(map[string]HealthCheck),
		startTime: time.Now(),
		polled:    make(map[string]*polledSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stats returns engine-wide counters from the event projection plus live
// gauges.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	type statsView struct {
		Sessions       int                   `json:"sessions"`
		PolledSessions int                   `json:"polled_sessions"`
		Clients        int                   `json:"clients"`
		Events         *events.StatsSnapshot `json:"events,omitempty"`
	}
	view := statsView{
		Sessions:       h.manager.Len(),
		PolledSessions: h.polledCount(),
		Clients:        h.hub.GetClientCount(),
	}
	if h.stats != nil {
		snap := h.stats.Snapshot()
		view.Events = &snap
	}
	respondData(w, http.StatusOK, view)
}
