// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// ContentConfig configures the content provider client.
type ContentConfig struct {
	ClientConfig

	// CacheSize bounds the page cache; zero disables it.
	CacheSize int
	CacheTTL  time.Duration
}

// ContentClient fetches feed and profile pages from the content provider.
//
// Wire format:
//
//	GET {base}/feed?cursor={cursor}
//	GET {base}/profiles/{owner}/media?cursor={cursor}
//	-> {"items": [...], "next_cursor": "..."}
type ContentClient struct {
	c     *client
	cache *expirable.LRU[string, feed.Page]
}

// NewContentClient creates a content provider client.
func NewContentClient(cfg ContentConfig) (*ContentClient, error) {
	c, err := newClient("content", cfg.ClientConfig)
	if err != nil {
		return nil, err
	}
	cc := &ContentClient{c: c}
	if cfg.CacheSize > 0 {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		cc.cache = expirable.NewLRU[string, feed.Page](cfg.CacheSize, nil, ttl)
	}
	return cc, nil
}

// Feed returns the provider for the main feed surface.
func (cc *ContentClient) Feed() feed.ContentProvider {
	return feed.ContentProviderFunc(func(ctx context.Context, cursor string) (feed.Page, error) {
		return cc.fetch(ctx, feed.SurfaceFeed, "/feed", cursor)
	})
}

// Profile returns the provider for one owner's profile grid.
func (cc *ContentClient) Profile(ownerID string) feed.ContentProvider {
	path := "/profiles/" + url.PathEscape(ownerID) + "/media"
	return feed.ContentProviderFunc(func(ctx context.Context, cursor string) (feed.Page, error) {
		return cc.fetch(ctx, feed.SurfaceProfile, path, cursor)
	})
}

// BreakerState reports the content circuit breaker state.
func (cc *ContentClient) BreakerState() string {
	return cc.c.breaker.State()
}

func (cc *ContentClient) fetch(ctx context.Context, surface feed.Surface, path, cursor string) (feed.Page, error) {
	cacheKey := path + "?" + cursor
	if cc.cache != nil {
		if page, ok := cc.cache.Get(cacheKey); ok {
			metrics.ProviderCacheHits.WithLabelValues(string(surface)).Inc()
			return clonePage(page), nil
		}
		metrics.ProviderCacheMisses.WithLabelValues(string(surface)).Inc()
	}

	var query url.Values
	if cursor != "" {
		query = url.Values{"cursor": {cursor}}
	}

	var page feed.Page
	if err := cc.c.do(ctx, "fetch_"+string(surface), http.MethodGet, path, query, nil, &page); err != nil {
		return feed.Page{}, err
	}
	if cc.cache != nil {
		cc.cache.Add(cacheKey, clonePage(page))
	}
	return page, nil
}

func clonePage(p feed.Page) feed.Page {
	items := make([]feed.MediaItem, len(p.Items))
	copy(items, p.Items)
	return feed.Page{Items: items, NextCursor: p.NextCursor}
}
