// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package feed

import (
	"context"
	"time"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/playback"
)

// OwnerKind is the kind of account that owns a media item.
type OwnerKind string

const (
	OwnerIndividual   OwnerKind = "individual"
	OwnerOrganization OwnerKind = "organization"
)

// MediaItem is one item as delivered by the content provider. It is never
// modified after it is received.
type MediaItem struct {
	ID           string        `json:"id" validate:"required"`
	Kind         playback.Kind `json:"kind" validate:"required,oneof=image video"`
	SourceURL    string        `json:"source_url" validate:"required"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	OwnerID      string        `json:"owner_id"`
	OwnerKind    OwnerKind     `json:"owner_kind" validate:"omitempty,oneof=individual organization"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Page is one page of a feed.
type Page struct {
	Items      []MediaItem `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ContentProvider pages through one feed. An empty NextCursor ends the feed.
type ContentProvider interface {
	FetchFeedPage(ctx context.Context, cursor string) (Page, error)
}

// ContentProviderFunc adapts a function to ContentProvider.
type ContentProviderFunc func(ctx context.Context, cursor string) (Page, error)

// FetchFeedPage implements ContentProvider.
func (f ContentProviderFunc) FetchFeedPage(ctx context.Context, cursor string) (Page, error) {
	return f(ctx, cursor)
}

// Catalog hands out content providers per rendering surface.
type Catalog interface {
	Feed() ContentProvider
	Profile(ownerID string) ContentProvider
}

// Surface is the rendering context of a session.
type Surface string

const (
	SurfaceFeed    Surface = "feed"
	SurfaceProfile Surface = "profile"
)

// RenderState is everything the UI needs to draw one item.
type RenderState struct {
	ItemID          string              `json:"item_id"`
	Key             identity.Key        `json:"key"`
	Kind            playback.Kind       `json:"kind"`
	PlaybackState   playback.State      `json:"playback_state"`
	IsMuted         bool                `json:"is_muted"`
	ShowFallback    bool                `json:"show_fallback"`
	IsActive        bool                `json:"is_active"`
	Readiness       string              `json:"readiness"`
	ReactionCounts  engagement.Counts   `json:"reaction_counts"`
	HasActorReacted bool                `json:"has_actor_reacted"`
	ActorReaction   engagement.Reaction `json:"actor_reaction,omitempty"`
}

// CommandOp is a media element operation.
type CommandOp string

const (
	OpLoad          CommandOp = "load"
	OpPlay          CommandOp = "play"
	OpPause         CommandOp = "pause"
	OpSeek          CommandOp = "seek"
	OpMute          CommandOp = "mute"
	OpPreload       CommandOp = "preload"
	OpCancelPreload CommandOp = "cancel_preload"
)

// MediaCommand tells the client what to do with one media element.
type MediaCommand struct {
	ItemID    string    `json:"item_id"`
	Op        CommandOp `json:"op"`
	SourceURL string    `json:"source_url,omitempty"`
	Prepared  bool      `json:"prepared,omitempty"`
	Position  float64   `json:"position,omitempty"`
	Muted     bool      `json:"muted,omitempty"`
	// Attempt identifies one preload request; the client echoes it in
	// preload_done.
	Attempt   uint64    `json:"attempt,omitempty"`
}

// Notice kinds.
const (
	NoticeEngagementSync  = "engagement_sync_failure"
	NoticeFeedUnavailable = "feed_unavailable"
)

// Notice is a transient, dismissible message for the user.
type Notice struct {
	Kind    string `json:"kind"`
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
}

// Sink receives session output. Implementations must be safe for concurrent
// use and must not call back into the session synchronously.
type Sink interface {
	Render(state RenderState)
	Command(cmd MediaCommand)
	Notice(n Notice)
}

// Discard is a Sink that drops all output.
var Discard Sink = discard{}

type discard struct{}

func (discard) Render(RenderState)  {}
func (discard) Command(MediaCommand) {}
func (discard) Notice(Notice)        {}
