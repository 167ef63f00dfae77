// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelfeed/internal/viewport"
)

// Server to client message types.
const (
	MessageTypeSession  = "session"
	MessageTypeRender   = "render"
	MessageTypeCommand  = "command"
	MessageTypeNotice   = "notice"
	MessageTypeAck      = "ack"
	MessageTypeError    = "error"
	MessageTypePong     = "pong"
	MessageTypeShutdown = "shutdown"
)

// Client to server message types.
const (
	MessageTypePing           = "ping"
	MessageTypeObserve        = "observe"
	MessageTypeActivate       = "activate"
	MessageTypeToggleMute     = "toggle_mute"
	MessageTypeTogglePlayback = "toggle_playback"
	MessageTypeToggleReaction = "toggle_reaction"
	MessageTypeRetry          = "retry"
	MessageTypeMediaStarted   = "media_started"
	MessageTypeMediaFailed    = "media_failed"
	MessageTypePreloadDone    = "preload_done"
	MessageTypeLoadMore       = "load_more"
)

// Message is a server to client message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound is a client to server message. Seq is echoed in the ack or error
// reply so clients can correlate them.
type Inbound struct {
	Type     string          `json:"type" validate:"required,oneof=ping observe activate toggle_mute toggle_playback toggle_reaction retry media_started media_failed preload_done load_more"`
	Seq      int64           `json:"seq,omitempty" validate:"min=0"`
	ItemID   string          `json:"item_id,omitempty" validate:"max=256"`
	Frame    *viewport.Frame `json:"frame,omitempty" validate:"required_if=Type observe"`
	Reaction string          `json:"reaction,omitempty" validate:"required_if=Type toggle_reaction"`
	Reason   string          `json:"reason,omitempty" validate:"max=512"`
	Attempt  uint64          `json:"attempt,omitempty" validate:"required_if=Type preload_done"`
}

// SessionData is sent once a connection is bound to a feed session.
type SessionData struct {
	SessionID string   `json:"session_id"`
	Surface   string   `json:"surface"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Reactions []string `json:"reactions"`
}

// AckData answers a successfully handled inbound message.
type AckData struct {
	Seq    int64       `json:"seq"`
	Op     string      `json:"op"`
	Result interface{} `json:"result,omitempty"`
}

// ErrorData answers an inbound message that could not be handled.
type ErrorData struct {
	Seq     int64  `json:"seq,omitempty"`
	Op      string `json:"op,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeInbound parses one client frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var in Inbound
	err := json.Unmarshal(data, &in)
	return in, err
}
