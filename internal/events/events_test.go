// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/playback"
)

// startRouter runs a router over a fresh bus until the test ends.
func startRouter(t *testing.T) (*Bus, *Stats) {
	t.Helper()
	bus := NewBus(0)
	stats := NewStats()
	router := NewRouter(DefaultRouterConfig(), bus, stats)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- router.Serve(ctx) }()

	select {
	case <-router.Running():
	case err := <-done:
		t.Fatalf("router stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("router did not stop")
		}
		_ = bus.Close()
	})
	return bus, stats
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouter_ProjectsPlayback(t *testing.T) {
	t.Parallel()
	bus, stats := startRouter(t)

	bus.PublishPlayback("s1", playback.Transition{ItemID: "a", From: playback.Idle, To: playback.Preparing})
	bus.PublishPlayback("s1", playback.Transition{ItemID: "a", From: playback.Preparing, To: playback.Playing})
	bus.PublishPlayback("s1", playback.Transition{ItemID: "b", From: playback.Preparing, To: playback.Errored, Err: playback.ErrMediaDecode})

	waitFor(t, "three transitions", func() bool {
		snap := stats.Snapshot()
		return snap.Transitions[playback.Preparing.String()] == 1 &&
			snap.Transitions[playback.Playing.String()] == 1 &&
			snap.Transitions[playback.Errored.String()] == 1
	})
	if got := stats.Snapshot().MediaErrors; got != 1 {
		t.Errorf("MediaErrors = %d, want 1", got)
	}
}

func TestRouter_ProjectsEngagementAndSessions(t *testing.T) {
	t.Parallel()
	bus, stats := startRouter(t)

	bus.PublishSession("s1", "feed", SessionOpened)
	bus.PublishEngagement(engagement.Change{
		Key:    "m1_x",
		Actor:  "anon-1234567890",
		Counts: engagement.Counts{ByType: map[engagement.Reaction]int{engagement.Fire: 1}, Total: 1},
	})
	bus.PublishEngagement(engagement.Change{
		Key:        "m1_x",
		Actor:      "anon-1234567890",
		Counts:     engagement.Counts{ByType: map[engagement.Reaction]int{}, Total: 0},
		RolledBack: true,
	})
	bus.PublishSession("s1", "feed", SessionClosed)

	waitFor(t, "engagement and session events", func() bool {
		snap := stats.Snapshot()
		return snap.EngagementChanges == 2 && snap.SessionsOpened == 1 && snap.SessionsClosed == 1
	})

	snap := stats.Snapshot()
	if snap.Rollbacks != 1 {
		t.Errorf("Rollbacks = %d, want 1", snap.Rollbacks)
	}
	if snap.TrackedKeys != 1 {
		t.Errorf("TrackedKeys = %d, want 1", snap.TrackedKeys)
	}
	ev, ok := stats.LastEngagement("m1_x")
	if !ok {
		t.Fatal("LastEngagement(m1_x) missing")
	}
	if ev.Actor == "anon-1234567890" {
		t.Error("actor id should be masked in events")
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewBus(4)
	defer bus.Close()

	if err := bus.Publish(TopicSession, SessionEvent{SessionID: "s"}); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
	if err := bus.Publish(TopicSession, func() {}); err == nil {
		t.Error("Publish(unencodable) error = nil, want error")
	}
}
