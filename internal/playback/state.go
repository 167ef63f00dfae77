// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package playback

import (
	"errors"
	"fmt"
	"time"
)

// ErrMediaDecode is recorded when a media resource reports a decode or
// network error. The item stays Errored until it leaves the viewport or is
// retried.
var ErrMediaDecode = errors.New("media decode error")

// State is the playback state of one feed item.
type State int

const (
	Idle State = iota
	Preparing
	Playing
	Paused
	Errored
)

// String implements fmt.Stringer. The values double as wire and metric labels.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState returns the State with the given label.
func ParseState(label string) (State, error) {
	for st := Idle; st <= Errored; st++ {
		if st.String() == label {
			return st, nil
		}
	}
	return Idle, fmt.Errorf("unknown playback state %q", label)
}

// Kind distinguishes still images from playable media.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Playable reports whether items of this kind compete for the playback slot.
func (k Kind) Playable() bool {
	return k == KindVideo
}

// Resource is the media element behind one feed item. Implementations must
// not call back into the Coordinator synchronously; completions are reported
// later through Started or Failed.
type Resource interface {
	// Load starts loading and begins playback as soon as possible. prepared
	// reports whether the preload pool already buffered the item.
	Load(prepared bool)
	Play()
	Pause()
	Seek(position time.Duration)
	SetMuted(muted bool)
}

// ReadinessReader is the read-only view of the preload pool.
type ReadinessReader interface {
	IsReady(itemID string) bool
}

// Snapshot is the externally visible playback state of one item.
type Snapshot struct {
	ItemID       string `json:"item_id"`
	Kind         Kind   `json:"kind"`
	State        State  `json:"state"`
	Muted        bool   `json:"muted"`
	ShowFallback bool   `json:"show_fallback"`
	Err          error  `json:"-"`
}

// Transition is reported to observers for every state change.
type Transition struct {
	ItemID string
	From   State
	To     State
	Err    error
}

// Observer receives transitions after the coordinator lock is released.
type Observer func(Transition)
