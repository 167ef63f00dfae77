// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/playback"
)

// DemoCatalog is a deterministic in-memory catalog used when no content
// provider is configured and by the simulate command.
//
// The same asset is served to the feed and to its owner's profile under
// different raw ids and cache-busting parameters, like a real provider.
type DemoCatalog struct {
	items    []feed.MediaItem
	pageSize int
}

// NewDemoCatalog creates a catalog of n items split into pages of pageSize.
// Every third item is an image; owners rotate over four accounts.
func NewDemoCatalog(n, pageSize int) *DemoCatalog {
	if pageSize < 1 {
		pageSize = 10
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]feed.MediaItem, 0, n)
	for i := 0; i < n; i++ {
		kind, ext := playback.KindVideo, "mp4"
		if i%3 == 2 {
			kind, ext = playback.KindImage, "jpg"
		}
		owner := fmt.Sprintf("owner-%d", i%4)
		ownerKind := feed.OwnerIndividual
		if i%4 == 3 {
			ownerKind = feed.OwnerOrganization
		}
		src := fmt.Sprintf("https://cdn.reelfeed.example/%s/asset-%03d.%s", owner, i, ext)
		items = append(items, feed.MediaItem{
			ID:           fmt.Sprintf("feed-%03d", i),
			Kind:         kind,
			SourceURL:    src,
			ThumbnailURL: src + ".thumb.jpg",
			OwnerID:      owner,
			OwnerKind:    ownerKind,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	return &DemoCatalog{items: items, pageSize: pageSize}
}

// Len returns the number of items in the catalog.
func (d *DemoCatalog) Len() int {
	return len(d.items)
}

// Feed implements feed.Catalog.
func (d *DemoCatalog) Feed() feed.ContentProvider {
	return feed.ContentProviderFunc(func(ctx context.Context, cursor string) (feed.Page, error) {
		return d.page(ctx, d.items, cursor, func(it feed.MediaItem, _ int) feed.MediaItem {
			it.SourceURL += "?cb=feed"
			return it
		})
	})
}

// Profile implements feed.Catalog.
func (d *DemoCatalog) Profile(ownerID string) feed.ContentProvider {
	var owned []feed.MediaItem
	for _, it := range d.items {
		if it.OwnerID == ownerID {
			owned = append(owned, it)
		}
	}
	return feed.ContentProviderFunc(func(ctx context.Context, cursor string) (feed.Page, error) {
		return d.page(ctx, owned, cursor, func(it feed.MediaItem, i int) feed.MediaItem {
			it.ID = fmt.Sprintf("%s-grid-%03d", ownerID, i)
			it.SourceURL += "?cb=profile&w=320"
			return it
		})
	})
}

func (d *DemoCatalog) page(ctx context.Context, items []feed.MediaItem, cursor string, view func(feed.MediaItem, int) feed.MediaItem) (feed.Page, error) {
	if err := ctx.Err(); err != nil {
		return feed.Page{}, err
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return feed.Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}
	if start > len(items) {
		start = len(items)
	}
	end := min(start+d.pageSize, len(items))

	page := feed.Page{Items: make([]feed.MediaItem, 0, end-start)}
	for i := start; i < end; i++ {
		page.Items = append(page.Items, view(items[i], i))
	}
	if end < len(items) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// MemoryEngagement is an in-memory engagement service. It keeps one
// reaction per (key, actor) and accepts every well-formed request unless
// Reject says otherwise.
type MemoryEngagement struct {
	// Latency delays every call, bounded by the caller's context.
	Latency time.Duration

	// Reject, when set, is consulted before every mutation; a non-nil
	// result is returned as the rejection.
	Reject func(key identity.Key, actor string, r engagement.Reaction) error

	mu        sync.Mutex
	reactions map[identity.Key]map[string]engagement.Reaction
}

// NewMemoryEngagement creates an empty in-memory engagement service.
func NewMemoryEngagement() *MemoryEngagement {
	return &MemoryEngagement{reactions: make(map[identity.Key]map[string]engagement.Reaction)}
}

// SubmitReaction implements engagement.Service.
func (m *MemoryEngagement) SubmitReaction(ctx context.Context, key identity.Key, actor string, r engagement.Reaction) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.Reject != nil {
		if err := m.Reject(key, actor, r); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byActor, ok := m.reactions[key]
	if !ok {
		byActor = make(map[string]engagement.Reaction)
		m.reactions[key] = byActor
	}
	byActor[actor] = r
	return nil
}

// SubmitUnreaction implements engagement.Service.
func (m *MemoryEngagement) SubmitUnreaction(ctx context.Context, key identity.Key, actor string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.Reject != nil {
		if err := m.Reject(key, actor, ""); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reactions[key], actor)
	return nil
}

// FetchInitialCounts implements engagement.Service.
func (m *MemoryEngagement) FetchInitialCounts(ctx context.Context, key identity.Key, actor string) (engagement.Initial, error) {
	if err := m.wait(ctx); err != nil {
		return engagement.Initial{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	init := engagement.Initial{Counts: make(map[engagement.Reaction]int)}
	for a, r := range m.reactions[key] {
		init.Counts[r]++
		if a == actor {
			init.ActorReaction = r
		}
	}
	return init, nil
}

func (m *MemoryEngagement) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
