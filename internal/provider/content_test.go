// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelfeed/internal/feed"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newContentClient(t *testing.T, url string, cacheSize int, breaker BreakerConfig) *ContentClient {
	t.Helper()
	cc, err := NewContentClient(ContentConfig{
		ClientConfig: ClientConfig{BaseURL: url, Timeout: 2 * time.Second, Breaker: breaker},
		CacheSize:    cacheSize,
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("NewContentClient() error = %v", err)
	}
	return cc
}

func TestContentClient_FeedPage(t *testing.T) {
	t.Parallel()

	urls := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urls <- r.URL.Path + "?cursor=" + r.URL.Query().Get("cursor")
		writeJSON(t, w, feed.Page{
			Items: []feed.MediaItem{
				{ID: "a", Kind: "video", SourceURL: "https://cdn.example/a.mp4", OwnerID: "u1"},
				{ID: "b", Kind: "image", SourceURL: "https://cdn.example/b.jpg", OwnerID: "u1"},
			},
			NextCursor: "c2",
		})
	}))
	defer srv.Close()

	cc := newContentClient(t, srv.URL, 0, BreakerConfig{})
	page, err := cc.Feed().FetchFeedPage(context.Background(), "c1")
	if err != nil {
		t.Fatalf("FetchFeedPage() error = %v", err)
	}
	if got := <-urls; got != "/feed?cursor=c1" {
		t.Errorf("request = %s, want /feed?cursor=c1", got)
	}
	if len(page.Items) != 2 || page.Items[1].Kind != "image" {
		t.Errorf("Items = %+v, want two items with b as image", page.Items)
	}
	if page.NextCursor != "c2" {
		t.Errorf("NextCursor = %q, want c2", page.NextCursor)
	}
}

func TestContentClient_ProfilePathEscaped(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.EscapedPath()
		writeJSON(t, w, feed.Page{})
	}))
	defer srv.Close()

	cc := newContentClient(t, srv.URL+"/", 0, BreakerConfig{})
	if _, err := cc.Profile("team/red").FetchFeedPage(context.Background(), ""); err != nil {
		t.Fatalf("FetchFeedPage() error = %v", err)
	}
	if got, want := <-paths, "/profiles/team%2Fred/media"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestContentClient_PageCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(t, w, feed.Page{Items: []feed.MediaItem{{ID: r.URL.Query().Get("cursor")}}})
	}))
	defer srv.Close()

	cc := newContentClient(t, srv.URL, 8, BreakerConfig{})
	provider := cc.Feed()
	ctx := context.Background()

	first, err := provider.FetchFeedPage(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchFeedPage() error = %v", err)
	}
	first.Items[0].ID = "mutated"

	second, err := provider.FetchFeedPage(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchFeedPage() error = %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1", got)
	}
	if second.Items[0].ID != "p1" {
		t.Errorf("cached item id = %q, want p1 (cache must not alias caller pages)", second.Items[0].ID)
	}

	if _, err := provider.FetchFeedPage(ctx, "p2"); err != nil {
		t.Fatalf("FetchFeedPage() error = %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("upstream hits = %d, want 2", got)
	}
}

func TestContentClient_BreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	cc := newContentClient(t, srv.URL, 0, BreakerConfig{MaxFailures: 2, Timeout: time.Minute})
	provider := cc.Feed()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := provider.FetchFeedPage(ctx, "")
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
			t.Fatalf("call %d error = %v, want StatusError 502", i, err)
		}
	}

	_, err := provider.FetchFeedPage(ctx, "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error after trip = %v, want ErrUnavailable", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("upstream hits = %d, want 2", got)
	}
	if got := cc.BreakerState(); got != "open" {
		t.Errorf("BreakerState() = %q, want open", got)
	}
}

func TestContentClient_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "no such cursor", http.StatusNotFound)
	}))
	defer srv.Close()

	cc := newContentClient(t, srv.URL, 0, BreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	for i := 0; i < 3; i++ {
		if _, err := cc.Feed().FetchFeedPage(context.Background(), "x"); err == nil {
			t.Fatalf("call %d error = nil, want 404", i)
		}
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("upstream hits = %d, want 3", got)
	}
	if got := cc.BreakerState(); got != "closed" {
		t.Errorf("BreakerState() = %q, want closed", got)
	}
}

func TestNewContentClient_InvalidURL(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := NewContentClient(ContentConfig{ClientConfig: ClientConfig{BaseURL: raw}}); err == nil {
			t.Errorf("NewContentClient(%q) error = nil, want error", raw)
		}
	}
}
