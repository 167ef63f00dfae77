// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"time"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// Topics.
const (
	TopicPlayback   = "reelfeed.playback"
	TopicEngagement = "reelfeed.engagement"
	TopicSession    = "reelfeed.session"
)

// PlaybackEvent is one playback state transition inside a feed session.
type PlaybackEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	SessionID     string    `json:"session_id"`
	ItemID        string    `json:"item_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EngagementEvent is a change of the aggregated counts of one canonical key.
// Actor ids are masked before they leave the process.
type EngagementEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventID       string         `json:"event_id"`
	Key           string         `json:"key"`
	Actor         string         `json:"actor"`
	Total         int            `json:"total"`
	ByType        map[string]int `json:"by_type"`
	RolledBack    bool           `json:"rolled_back"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Session actions.
const (
	SessionOpened = "opened"
	SessionClosed = "closed"
)

// SessionEvent marks a feed session opening or closing.
type SessionEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	SessionID     string    `json:"session_id"`
	Surface       string    `json:"surface"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}
