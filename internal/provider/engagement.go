// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/identity"
)

// EngagementClient talks to the engagement service.
//
// Wire format:
//
//	POST   {base}/reactions                     {"key","actor","reaction"}
//	DELETE {base}/reactions                     {"key","actor"}
//	GET    {base}/reactions/{key}/counts?actor= -> {"counts": {...}, "actor_reaction": "..."}
//
// Every non-2xx response is a rejection. Only 5xx, 429 and transport errors
// count against the circuit breaker.
type EngagementClient struct {
	c *client
}

// reactionRequest is the body of submit and withdraw calls.
type reactionRequest struct {
	Key      identity.Key        `json:"key"`
	Actor    string              `json:"actor"`
	Reaction engagement.Reaction `json:"reaction,omitempty"`
}

// NewEngagementClient creates an engagement service client.
func NewEngagementClient(cfg ClientConfig) (*EngagementClient, error) {
	c, err := newClient("engagement", cfg)
	if err != nil {
		return nil, err
	}
	return &EngagementClient{c: c}, nil
}

// SubmitReaction implements engagement.Service.
func (ec *EngagementClient) SubmitReaction(ctx context.Context, key identity.Key, actor string, r engagement.Reaction) error {
	body := reactionRequest{Key: key, Actor: actor, Reaction: r}
	return ec.c.do(ctx, "submit_reaction", http.MethodPost, "/reactions", nil, body, nil)
}

// SubmitUnreaction implements engagement.Service.
func (ec *EngagementClient) SubmitUnreaction(ctx context.Context, key identity.Key, actor string) error {
	body := reactionRequest{Key: key, Actor: actor}
	return ec.c.do(ctx, "submit_unreaction", http.MethodDelete, "/reactions", nil, body, nil)
}

// FetchInitialCounts implements engagement.Service.
func (ec *EngagementClient) FetchInitialCounts(ctx context.Context, key identity.Key, actor string) (engagement.Initial, error) {
	var init engagement.Initial
	path := "/reactions/" + url.PathEscape(key.String()) + "/counts"
	query := url.Values{"actor": {actor}}
	if err := ec.c.do(ctx, "fetch_counts", http.MethodGet, path, query, nil, &init); err != nil {
		return engagement.Initial{}, fmt.Errorf("fetch counts for %s: %w", key, err)
	}
	return init, nil
}

// BreakerState reports the engagement circuit breaker state.
func (ec *EngagementClient) BreakerState() string {
	return ec.c.breaker.State()
}
