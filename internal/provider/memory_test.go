// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/identity"
)

func TestDemoCatalog_Paging(t *testing.T) {
	t.Parallel()
	cat := NewDemoCatalog(25, 10)
	ctx := context.Background()

	var ids []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("paging did not terminate")
		}
		page, err := cat.Feed().FetchFeedPage(ctx, cursor)
		if err != nil {
			t.Fatalf("FetchFeedPage(%q) error = %v", cursor, err)
		}
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(ids) != 25 {
		t.Errorf("items = %d, want 25", len(ids))
	}
	if ids[0] != "feed-000" || ids[24] != "feed-024" {
		t.Errorf("ids = %s..%s, want feed-000..feed-024", ids[0], ids[24])
	}

	if _, err := cat.Feed().FetchFeedPage(ctx, "bogus"); err == nil {
		t.Error("FetchFeedPage(bogus) error = nil, want error")
	}
}

func TestDemoCatalog_ProfileSharesKeysWithFeed(t *testing.T) {
	t.Parallel()
	cat := NewDemoCatalog(8, 20)
	ctx := context.Background()

	feedPage, err := cat.Feed().FetchFeedPage(ctx, "")
	if err != nil {
		t.Fatalf("Feed error = %v", err)
	}
	profilePage, err := cat.Profile("owner-1").FetchFeedPage(ctx, "")
	if err != nil {
		t.Fatalf("Profile error = %v", err)
	}
	if len(profilePage.Items) != 2 {
		t.Fatalf("profile items = %d, want 2", len(profilePage.Items))
	}

	feedItem := feedPage.Items[1]
	profileItem := profilePage.Items[0]
	if feedItem.ID == profileItem.ID || feedItem.SourceURL == profileItem.SourceURL {
		t.Fatalf("renderings should differ in raw id and URL: %+v vs %+v", feedItem, profileItem)
	}

	a := identity.MustResolve(feedItem.OwnerID, feedItem.SourceURL)
	b := identity.MustResolve(profileItem.OwnerID, profileItem.SourceURL)
	if a != b {
		t.Errorf("keys differ across surfaces: %s vs %s", a, b)
	}
}

func TestMemoryEngagement_Counts(t *testing.T) {
	t.Parallel()
	svc := NewMemoryEngagement()
	ctx := context.Background()
	key := identity.Key("m1_k")

	for actor, r := range map[string]engagement.Reaction{"a": engagement.Like, "b": engagement.Like, "c": engagement.Fire} {
		if err := svc.SubmitReaction(ctx, key, actor, r); err != nil {
			t.Fatalf("SubmitReaction() error = %v", err)
		}
	}
	if err := svc.SubmitReaction(ctx, key, "c", engagement.Love); err != nil {
		t.Fatalf("SubmitReaction() error = %v", err)
	}
	if err := svc.SubmitUnreaction(ctx, key, "b"); err != nil {
		t.Fatalf("SubmitUnreaction() error = %v", err)
	}

	init, err := svc.FetchInitialCounts(ctx, key, "c")
	if err != nil {
		t.Fatalf("FetchInitialCounts() error = %v", err)
	}
	if init.Counts[engagement.Like] != 1 || init.Counts[engagement.Love] != 1 || init.Counts[engagement.Fire] != 0 {
		t.Errorf("Counts = %v, want LIKE:1 LOVE:1", init.Counts)
	}
	if init.ActorReaction != engagement.Love {
		t.Errorf("ActorReaction = %q, want LOVE", init.ActorReaction)
	}
}

func TestMemoryEngagement_RejectAndLatency(t *testing.T) {
	t.Parallel()
	errDenied := errors.New("denied")
	svc := NewMemoryEngagement()
	svc.Reject = func(_ identity.Key, _ string, r engagement.Reaction) error {
		if r == engagement.Wow {
			return errDenied
		}
		return nil
	}

	if err := svc.SubmitReaction(context.Background(), "k", "a", engagement.Wow); !errors.Is(err, errDenied) {
		t.Errorf("SubmitReaction(WOW) error = %v, want denied", err)
	}

	svc.Latency = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := svc.SubmitReaction(ctx, "k", "a", engagement.Like); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SubmitReaction() with latency error = %v, want deadline exceeded", err)
	}
}
