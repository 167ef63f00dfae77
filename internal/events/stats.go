// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Stats is a projection of the event stream for the stats endpoint.
type Stats struct {
	mu sync.RWMutex

	transitions     map[string]int
	mediaErrors     int
	engagementEvts  int
	rollbacks       int
	sessionsOpened  int
	sessionsClosed  int
	lastEngagements map[string]EngagementEvent
}

// StatsSnapshot is a copy of Stats.
type StatsSnapshot struct {
	Transitions       map[string]int `json:"transitions"`
	MediaErrors       int            `json:"media_errors"`
	EngagementChanges int            `json:"engagement_changes"`
	Rollbacks         int            `json:"rollbacks"`
	SessionsOpened    int            `json:"sessions_opened"`
	SessionsClosed    int            `json:"sessions_closed"`
	TrackedKeys       int            `json:"tracked_keys"`
}

// NewStats creates an empty projection.
func NewStats() *Stats {
	return &Stats{
		transitions:     make(map[string]int),
		lastEngagements: make(map[string]EngagementEvent),
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr := make(map[string]int, len(s.transitions))
	for k, v := range s.transitions {
		tr[k] = v
	}
	return StatsSnapshot{
		Transitions:       tr,
		MediaErrors:       s.mediaErrors,
		EngagementChanges: s.engagementEvts,
		Rollbacks:         s.rollbacks,
		SessionsOpened:    s.sessionsOpened,
		SessionsClosed:    s.sessionsClosed,
		TrackedKeys:       len(s.lastEngagements),
	}
}

// LastEngagement returns the most recent engagement event for key.
func (s *Stats) LastEngagement(key string) (EngagementEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.lastEngagements[key]
	return ev, ok
}

func (s *Stats) handlePlayback(msg *message.Message) error {
	var ev PlaybackEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode playback event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[ev.To]++
	if ev.Error != "" {
		s.mediaErrors++
	}
	return nil
}

func (s *Stats) handleEngagement(msg *message.Message) error {
	var ev EngagementEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode engagement event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engagementEvts++
	if ev.RolledBack {
		s.rollbacks++
	}
	if prev, ok := s.lastEngagements[ev.Key]; !ok || !ev.Timestamp.Before(prev.Timestamp) {
		s.lastEngagements[ev.Key] = ev
	}
	return nil
}

func (s *Stats) handleSession(msg *message.Message) error {
	var ev SessionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode session event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Action {
	case SessionOpened:
		s.sessionsOpened++
	case SessionClosed:
		s.sessionsClosed++
	}
	return nil
}
