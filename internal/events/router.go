// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig holds configuration for the event router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultRouterConfig returns defaults for the in-process router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         5 * time.Second,
		RetryMaxRetries:      2,
		RetryInitialInterval: 50 * time.Millisecond,
		RetryMaxInterval:     time.Second,
	}
}

// Router feeds bus events into the stats projection. It satisfies
// suture.Service; each Serve builds a fresh watermill router since a
// closed one cannot be run again.
type Router struct {
	cfg   RouterConfig
	bus   *Bus
	stats *Stats

	running     chan struct{}
	runningOnce sync.Once
}

// NewRouter creates a router over bus.
func NewRouter(cfg RouterConfig, bus *Bus, stats *Stats) *Router {
	if cfg.CloseTimeout <= 0 {
		cfg = DefaultRouterConfig()
	}
	return &Router{cfg: cfg, bus: bus, stats: stats, running: make(chan struct{})}
}

// Running is closed once the first router instance is processing messages.
func (r *Router) Running() <-chan struct{} {
	return r.running
}

// Serve runs the router until ctx is cancelled.
func (r *Router) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.bus.Logger())
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		MaxInterval:     r.cfg.RetryMaxInterval,
		Multiplier:      2,
		Logger:          r.bus.Logger(),
	}
	router.AddMiddleware(retry.Middleware)

	sub := r.bus.Subscriber()
	router.AddConsumerHandler("stats-playback", TopicPlayback, sub, r.stats.handlePlayback)
	router.AddConsumerHandler("stats-engagement", TopicEngagement, sub, r.stats.handleEngagement)
	router.AddConsumerHandler("stats-session", TopicSession, sub, r.stats.handleSession)

	go func() {
		select {
		case <-router.Running():
			r.markRunning()
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

func (r *Router) markRunning() {
	r.runningOnce.Do(func() { close(r.running) })
}

// String implements fmt.Stringer for supervisor logs.
func (r *Router) String() string {
	return "event-router"
}
