// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"

	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/validation"
)

// Reactions lists the enabled reaction types.
func (h *Handler) Reactions(w http.ResponseWriter, r *http.Request) {
	rs := h.manager.Ledger().Reactions()
	names := make([]string, len(rs))
	for i, rx := range rs {
		names[i] = string(rx)
	}
	respondData(w, http.StatusOK, names)
}

// Counts returns the aggregate counts of a media reference. Every URL that
// normalizes to the same canonical key reports the same counts.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	q := models.CountsQuery{
		OwnerID:   r.URL.Query().Get("owner_id"),
		SourceURL: r.URL.Query().Get("source_url"),
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondValidation(w, verr)
		return
	}

	key, err := identity.Resolve(q.OwnerID, q.SourceURL)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_MEDIA_REFERENCE", err.Error(), nil)
		return
	}

	counts := h.manager.CountsFor(key)
	byType := make(map[string]int, len(counts.ByType))
	for rx, n := range counts.ByType {
		byType[string(rx)] = n
	}
	respondData(w, http.StatusOK, models.CountsResponse{
		Key:    key.String(),
		ByType: byType,
		Total:  counts.Total,
	})
}
