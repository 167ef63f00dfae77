// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelfeed/internal/actor"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	ws "github.com/tomtom215/reelfeed/internal/websocket"
)

// SessionView is the REST representation of a session.
type SessionView struct {
	SessionID string             `json:"session_id"`
	Surface   string             `json:"surface"`
	OwnerID   string             `json:"owner_id,omitempty"`
	Active    string             `json:"active,omitempty"`
	Playing   int                `json:"playing"`
	Reactions []string           `json:"reactions"`
	Items     []feed.RenderState `json:"items"`
}

func (h *Handler) view(s *feed.Session) SessionView {
	return SessionView{
		SessionID: s.ID(),
		Surface:   string(s.Surface()),
		OwnerID:   s.OwnerID(),
		Active:    s.Active(),
		Playing:   s.PlayingCount(),
		Reactions: h.cfg.Reactions,
		Items:     s.Items(),
	}
}

// OpenSession opens a polled session for the request's actor.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req models.OpenSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, _ := actor.FromContext(r.Context())

	mailbox := NewMailbox(h.cfg.MailboxLimit)
	s, err := h.manager.Open(r.Context(), feed.SessionOptions{
		Actor:   a.ID,
		Surface: feed.Surface(req.Surface),
		OwnerID: req.OwnerID,
		Sink:    mailbox,
	})
	if err != nil {
		respondOpenError(w, err)
		return
	}

	h.mu.Lock()
	h.polled[s.ID()] = &polledSession{mailbox: mailbox, lastSeen: time.Now()}
	h.mu.Unlock()

	respondData(w, http.StatusCreated, h.view(s))
}

func respondOpenError(w http.ResponseWriter, err error) {
	if errors.Is(err, feed.ErrInvalidSession) {
		respondError(w, http.StatusBadRequest, "INVALID_SESSION", err.Error(), nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not open session", err)
}

// GetSession returns the session and the state of every item.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, h.view(s))
}

// CloseSession closes a session, whichever transport drives it.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.closeSession(s.ID())
	respondData(w, http.StatusOK, map[string]bool{"closed": true})
}

func (h *Handler) closeSession(id string) {
	h.mu.Lock()
	delete(h.polled, id)
	h.mu.Unlock()

	h.hub.Disconnect(id)
	if err := h.manager.Close(id); err != nil && !errors.Is(err, feed.ErrSessionNotFound) {
		logging.Warn().Err(err).Str("session_id", id).Msg("Session close failed")
	}
}

// PollSession drains the output buffered for a polled session.
func (h *Handler) PollSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	p, polled := h.polled[s.ID()]
	h.mu.Unlock()
	if !polled {
		respondError(w, http.StatusConflict, "NOT_POLLED", "Session is driven by a websocket", nil)
		return
	}
	respondData(w, http.StatusOK, p.mailbox.Drain())
}

// SessionInput applies any client message to the session. It accepts the
// same messages as the websocket transport.
func (h *Handler) SessionInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var in ws.Inbound
	if !decodeBody(w, r, &in) {
		return
	}
	h.dispatch(w, r.Context(), s, in)
}

// LoadMore fetches the next page.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, ws.Inbound{Type: ws.MessageTypeLoadMore})
}

// ToggleMute flips the session's mute flag.
func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, ws.Inbound{Type: ws.MessageTypeToggleMute})
}

// ActivateItem makes an item active regardless of geometry.
func (h *Handler) ActivateItem(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, ws.Inbound{Type: ws.MessageTypeActivate, ItemID: chi.URLParam(r, "item")})
}

// TogglePlayback flips the active item between playing and paused.
func (h *Handler) TogglePlayback(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, ws.Inbound{Type: ws.MessageTypeTogglePlayback, ItemID: chi.URLParam(r, "item")})
}

// RetryItem clears an errored item.
func (h *Handler) RetryItem(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, ws.Inbound{Type: ws.MessageTypeRetry, ItemID: chi.URLParam(r, "item")})
}

// ToggleReaction reacts to an item, or removes the same reaction.
func (h *Handler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req models.ReactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.dispatch(w, r.Context(), s, ws.Inbound{
		Type:     ws.MessageTypeToggleReaction,
		ItemID:   chi.URLParam(r, "item"),
		Reaction: req.Reaction,
	})
}

// ReportMedia relays a media element report: started, failed or preloaded.
func (h *Handler) ReportMedia(w http.ResponseWriter, r *http.Request) {
	var typ string
	switch chi.URLParam(r, "event") {
	case "started":
		typ = ws.MessageTypeMediaStarted
	case "failed":
		typ = ws.MessageTypeMediaFailed
	case "preloaded":
		typ = ws.MessageTypePreloadDone
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown media event", nil)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req models.MediaReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.dispatch(w, r.Context(), s, ws.Inbound{
		Type:    typ,
		ItemID:  chi.URLParam(r, "item"),
		Reason:  req.Reason,
		Attempt: req.Attempt,
	})
}

func (h *Handler) sessionOp(w http.ResponseWriter, r *http.Request, in ws.Inbound) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r.Context(), s, in)
}

func (h *Handler) dispatch(w http.ResponseWriter, ctx context.Context, s *feed.Session, in ws.Inbound) {
	result, err := ws.Dispatch(ctx, s, in)
	if err != nil {
		respondDispatchError(w, err)
		return
	}
	if result == nil {
		result = map[string]bool{"ok": true}
	}
	respondData(w, http.StatusOK, result)
}

func respondDispatchError(w http.ResponseWriter, err error) {
	code := ws.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case ws.CodeValidation, ws.CodeUnknownReaction:
		status = http.StatusBadRequest
	case ws.CodeUnknownItem:
		status = http.StatusNotFound
	case ws.CodeSessionClosed:
		status = http.StatusGone
	case ws.CodeFeedUnavailable, ws.CodeCountsUnavailable:
		status = http.StatusServiceUnavailable
	}
	var logErr error
	if status == http.StatusInternalServerError {
		logErr = err
	}
	respondError(w, status, code, err.Error(), logErr)
}

// session loads the session in the URL. Sessions of other actors are
// reported as missing.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*feed.Session, bool) {
	id := chi.URLParam(r, "id")
	a, _ := actor.FromContext(r.Context())

	s, err := h.manager.Get(id)
	if err != nil || s.Actor() != a.ID {
		respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
		return nil, false
	}

	h.mu.Lock()
	if p, ok := h.polled[id]; ok {
		p.lastSeen = time.Now()
	}
	h.mu.Unlock()
	return s, true
}

func (h *Handler) polledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.polled)
}

// ReapIdle closes polled sessions untouched since before now minus the
// poll TTL, and forgets polled sessions the manager already closed.
func (h *Handler) ReapIdle(now time.Time) int {
	cutoff := now.Add(-h.cfg.PollSessionTTL)

	h.mu.Lock()
	var idle []string
	for id, p := range h.polled {
		if p.lastSeen.Before(cutoff) {
			idle = append(idle, id)
			continue
		}
		if _, err := h.manager.Get(id); err != nil {
			delete(h.polled, id)
		}
	}
	h.mu.Unlock()

	for _, id := range idle {
		h.closeSession(id)
	}
	if len(idle) > 0 {
		logging.Info().Int("sessions", len(idle)).Msg("Closed idle polled sessions")
	}
	return len(idle)
}

// PollReaper runs ReapIdle periodically. It satisfies suture.Service.
type PollReaper struct {
	h *Handler
}

// Reaper returns the idle session reaper for this handler.
func (h *Handler) Reaper() *PollReaper {
	return &PollReaper{h: h}
}

// Serve reaps until ctx is cancelled.
func (p *PollReaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.h.cfg.PollSessionTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.h.ReapIdle(now)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *PollReaper) String() string {
	return "poll-session-reaper"
}
