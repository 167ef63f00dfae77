// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package models

// OpenSessionRequest opens a feed session. Profile sessions need an owner.
type OpenSessionRequest struct {
	Surface string `json:"surface" validate:"omitempty,oneof=feed profile"`
	OwnerID string `json:"owner_id" validate:"required_if=Surface profile,max=128"`
}

// ReactionRequest toggles a reaction on one item.
type ReactionRequest struct {
	Reaction string `json:"reaction" validate:"required,max=32"`
}

// MediaReportRequest carries a client media element report. An empty
// reason reports success where that is meaningful.
type MediaReportRequest struct {
	Reason  string `json:"reason" validate:"max=512"`
	// Attempt echoes the attempt of the preload command being reported.
	Attempt uint64 `json:"attempt,omitempty"`
}

// CountsQuery looks up aggregate counts for a media reference.
type CountsQuery struct {
	OwnerID   string `json:"owner_id" validate:"max=128"`
	SourceURL string `json:"source_url" validate:"required,max=2048"`
}

// CountsResponse is the aggregate for one canonical key.
type CountsResponse struct {
	Key    string         `json:"key"`
	ByType map[string]int `json:"by_type"`
	Total  int            `json:"total"`
}
