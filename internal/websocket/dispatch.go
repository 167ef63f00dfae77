// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package websocket

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/playback"
	"github.com/tomtom215/reelfeed/internal/validation"
)

// Error codes sent in ErrorData.
const (
	CodeInvalidMessage    = "INVALID_MESSAGE"
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnknownItem       = "UNKNOWN_ITEM"
	CodeUnknownReaction   = "UNKNOWN_REACTION"
	CodeSessionClosed     = "SESSION_CLOSED"
	CodeFeedUnavailable   = "FEED_UNAVAILABLE"
	CodeCountsUnavailable = "COUNTS_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

// MuteResult is the result of toggle_mute.
type MuteResult struct {
	Muted bool `json:"muted"`
}

// PlaybackResult is the result of toggle_playback.
type PlaybackResult struct {
	State playback.State `json:"state"`
}

// RetryResult is the result of retry.
type RetryResult struct {
	Retried bool `json:"retried"`
}

// LoadMoreResult is the result of load_more.
type LoadMoreResult struct {
	Added int `json:"added"`
}

// Dispatch validates one inbound message and applies it to the session.
// The result is nil for inputs that only produce render and command output.
func Dispatch(ctx context.Context, s *feed.Session, in Inbound) (interface{}, error) {
	if verr := validation.ValidateStruct(in); verr != nil {
		return nil, verr
	}

	switch in.Type {
	case MessageTypePing:
		return nil, nil
	case MessageTypeObserve:
		return nil, s.Observe(*in.Frame)
	case MessageTypeActivate:
		return nil, s.Activate(in.ItemID)
	case MessageTypeToggleMute:
		muted, err := s.ToggleMute()
		if err != nil {
			return nil, err
		}
		return MuteResult{Muted: muted}, nil
	case MessageTypeTogglePlayback:
		st, err := s.TogglePlayback(in.ItemID)
		if err != nil {
			return nil, err
		}
		return PlaybackResult{State: st}, nil
	case MessageTypeToggleReaction:
		r := engagement.Reaction(strings.ToUpper(strings.TrimSpace(in.Reaction)))
		counts, err := s.ToggleReaction(ctx, in.ItemID, r)
		if err != nil {
			return nil, err
		}
		return counts, nil
	case MessageTypeRetry:
		ok, err := s.Retry(in.ItemID)
		if err != nil {
			return nil, err
		}
		return RetryResult{Retried: ok}, nil
	case MessageTypeMediaStarted:
		return nil, s.MediaStarted(in.ItemID)
	case MessageTypeMediaFailed:
		return nil, s.MediaFailed(in.ItemID, in.Reason)
	case MessageTypePreloadDone:
		return nil, s.PreloadDone(in.ItemID, in.Attempt, in.Reason)
	case MessageTypeLoadMore:
		n, err := s.LoadNextPage(ctx)
		if err != nil {
			return nil, err
		}
		return LoadMoreResult{Added: n}, nil
	}
	return nil, nil
}

// ErrorCode maps a dispatch error to a wire error code.
func ErrorCode(err error) string {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return CodeValidation
	case errors.Is(err, feed.ErrUnknownItem):
		return CodeUnknownItem
	case errors.Is(err, engagement.ErrUnknownReaction):
		return CodeUnknownReaction
	case errors.Is(err, feed.ErrSessionClosed):
		return CodeSessionClosed
	case errors.Is(err, feed.ErrFeedUnavailable):
		return CodeFeedUnavailable
	case errors.Is(err, engagement.ErrSyncFailure), errors.Is(err, engagement.ErrNotSeeded):
		return CodeCountsUnavailable
	default:
		return CodeInternal
	}
}
