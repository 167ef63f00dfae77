// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package engagement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/reelfeed/internal/identity"
)

var (
	// ErrSyncFailure wraps every rejection from the engagement service.
	ErrSyncFailure = errors.New("engagement sync failed")

	// ErrUnknownReaction is returned for reaction types outside the
	// configured allow-list.
	ErrUnknownReaction = errors.New("unknown reaction type")

	// ErrNotSeeded is returned when a mutation finds no server baseline for
	// its key and actor.
	ErrNotSeeded = errors.New("reaction counts not loaded")
)

// Reaction is a reaction type. The set is open; the ledger validates against
// its configured allow-list.
type Reaction string

const (
	Like Reaction = "LIKE"
	Love Reaction = "LOVE"
	Fire Reaction = "FIRE"
	Wow  Reaction = "WOW"
	Clap Reaction = "CLAP"
)

// DefaultReactions is the allow-list used when none is configured.
var DefaultReactions = []Reaction{Like, Love, Fire, Wow, Clap}

// ParseReactions turns a list of names into reactions, upper-casing and
// dropping blanks and duplicates.
func ParseReactions(names []string) []Reaction {
	seen := make(map[Reaction]struct{}, len(names))
	out := make([]Reaction, 0, len(names))
	for _, n := range names {
		r := Reaction(strings.ToUpper(strings.TrimSpace(n)))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Counts is the aggregate for one canonical key.
type Counts struct {
	ByType map[Reaction]int `json:"by_type"`
	Total  int              `json:"total"`
}

// Of returns the count for one reaction type.
func (c Counts) Of(r Reaction) int {
	return c.ByType[r]
}

// Record is the visible reaction of one actor on one key.
type Record struct {
	Key      identity.Key `json:"key"`
	Actor    string       `json:"actor"`
	Reaction Reaction     `json:"reaction"`
	At       time.Time    `json:"at"`
}

// Initial is the server-side state used to seed a key.
type Initial struct {
	Counts        map[Reaction]int `json:"counts"`
	ActorReaction Reaction         `json:"actor_reaction,omitempty"`
}

// Service is the remote engagement API.
type Service interface {
	SubmitReaction(ctx context.Context, key identity.Key, actor string, r Reaction) error
	SubmitUnreaction(ctx context.Context, key identity.Key, actor string) error
	FetchInitialCounts(ctx context.Context, key identity.Key, actor string) (Initial, error)
}

// Notifier is told when an optimistic mutation was rolled back.
type Notifier interface {
	EngagementSyncFailed(key identity.Key, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(key identity.Key, err error)

// EngagementSyncFailed implements Notifier.
func (f NotifierFunc) EngagementSyncFailed(key identity.Key, err error) {
	f(key, err)
}

// Change is delivered to subscribers whenever the visible counts of a key
// may have changed.
type Change struct {
	Key        identity.Key
	Actor      string
	Counts     Counts
	RolledBack bool
}
