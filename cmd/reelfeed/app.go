// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/reelfeed/internal/actor"
	"github.com/tomtom215/reelfeed/internal/api"
	"github.com/tomtom215/reelfeed/internal/config"
	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/events"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/models"
	"github.com/tomtom215/reelfeed/internal/preload"
	"github.com/tomtom215/reelfeed/internal/provider"
	"github.com/tomtom215/reelfeed/internal/supervisor"
	"github.com/tomtom215/reelfeed/internal/supervisor/services"
	"github.com/tomtom215/reelfeed/internal/viewport"
	ws "github.com/tomtom215/reelfeed/internal/websocket"
)

// Demo catalog shape used when no content provider is configured.
const (
	demoCatalogItems    = 120
	demoCatalogPageSize = 10
)

// app holds every long-lived component of the server.
type app struct {
	cfg      *config.Config
	ledger   *engagement.Ledger
	bus      *events.Bus
	router   *events.Router
	manager  *feed.Manager
	hub      *ws.Hub
	registry *actor.Registry
	handler  *api.Handler
	server   *http.Server

	unsubscribe func()
}

// newApp wires the engine, messaging and API components from cfg.
func newApp(cfg *config.Config) (*app, error) {
	var checks []api.HandlerOption

	catalog, check, err := newCatalog(cfg)
	if err != nil {
		return nil, err
	}
	checks = append(checks, api.WithHealthCheck("content", check))

	service, check, err := newEngagementService(cfg)
	if err != nil {
		return nil, err
	}
	checks = append(checks, api.WithHealthCheck("engagement", check))

	ledger := engagement.NewLedger(service,
		engagement.WithReactions(engagement.ParseReactions(cfg.Engagement.ReactionTypes)),
		engagement.WithSubmitTimeout(cfg.Engagement.SubmitTimeout),
	)

	bus := events.NewBus(cfg.Server.EventBuffer)
	stats := events.NewStats()
	router := events.NewRouter(events.DefaultRouterConfig(), bus, stats)
	unsubscribe := ledger.Subscribe(bus.PublishEngagement)

	manager := feed.NewManager(feedConfig(cfg), catalog, ledger,
		feed.WithPlaybackObserver(bus.PublishPlayback),
		feed.WithSessionObserver(func(s *feed.Session, opened bool) {
			action := events.SessionClosed
			if opened {
				action = events.SessionOpened
			}
			bus.PublishSession(s.ID(), string(s.Surface()), action)
		}),
	)

	registry, err := actor.OpenRegistry(cfg.Actor.StorePath, cfg.Actor.CookieMaxAge)
	if err != nil {
		unsubscribe()
		_ = bus.Close()
		return nil, fmt.Errorf("open actor registry: %w", err)
	}
	resolver := actor.NewResolver(actor.Config{
		TrustedHeader: cfg.Actor.TrustedHeader,
		CookieName:    cfg.Actor.CookieName,
		CookieMaxAge:  cfg.Actor.CookieMaxAge,
		CookieSecure:  cfg.Actor.CookieSecure,
	}, registry)

	reactions := make([]string, 0, len(ledger.Reactions()))
	for _, r := range ledger.Reactions() {
		reactions = append(reactions, string(r))
	}

	hub := ws.NewHub()
	handler := api.NewHandler(api.HandlerConfig{
		Version:     buildVersion(),
		Reactions:   reactions,
		CORSOrigins: cfg.Security.CORSOrigins,
		WebSocket: ws.Config{
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBuffer,
		},
		PollSessionTTL: cfg.Server.PollSessionTTL,
		MailboxLimit:   cfg.Server.MailboxLimit,
	}, manager, hub, append(checks, api.WithStats(stats))...)

	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled

	server := &http.Server{
		Handler:           api.NewRouter(handler, resolver, mw).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	return &app{
		cfg:         cfg,
		ledger:      ledger,
		bus:         bus,
		router:      router,
		manager:     manager,
		hub:         hub,
		registry:    registry,
		handler:     handler,
		server:      server,
		unsubscribe: unsubscribe,
	}, nil
}

func feedConfig(cfg *config.Config) feed.Config {
	return feed.Config{
		Viewport: viewport.Config{
			Threshold:       cfg.Viewport.Threshold,
			LookaheadMargin: cfg.Viewport.LookaheadMargin,
		},
		Preload: preload.Config{
			Capacity:       cfg.Preload.Capacity,
			IdleTimeout:    cfg.Preload.IdleTimeout,
			SweepInterval:  cfg.Preload.SweepInterval,
			PrepareTimeout: cfg.Preload.PrepareTimeout,
		},
		PrefetchDistance: cfg.Feed.PrefetchDistance,
		StartMuted:       cfg.Feed.StartMuted,
		TrustRawIDs:      cfg.Feed.TrustRawIDs,
	}
}

func newCatalog(cfg *config.Config) (feed.Catalog, api.HealthCheck, error) {
	if cfg.UsesDemoCatalog() {
		logging.Warn().Int("items", demoCatalogItems).Msg("CONTENT_URL not set, serving the built-in demo catalog")
		return provider.NewDemoCatalog(demoCatalogItems, demoCatalogPageSize), builtinHealth, nil
	}
	client, err := provider.NewContentClient(provider.ContentConfig{
		ClientConfig: provider.ClientConfig{
			BaseURL:   cfg.Content.URL,
			Timeout:   cfg.Content.Timeout,
			RateLimit: cfg.Content.RateLimit,
			Burst:     cfg.Content.Burst,
			Breaker: provider.BreakerConfig{
				MaxFailures: cfg.Content.BreakerFailures,
				Timeout:     cfg.Content.BreakerTimeout,
			},
		},
		CacheSize: cfg.Content.CacheSize,
		CacheTTL:  cfg.Content.CacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("content client: %w", err)
	}
	return client, breakerHealth(client.BreakerState), nil
}

func newEngagementService(cfg *config.Config) (engagement.Service, api.HealthCheck, error) {
	if cfg.UsesMemoryEngagement() {
		logging.Warn().Msg("ENGAGEMENT_URL not set, reactions are kept in memory")
		return provider.NewMemoryEngagement(), builtinHealth, nil
	}
	client, err := provider.NewEngagementClient(provider.ClientConfig{
		BaseURL: cfg.Engagement.URL,
		Timeout: cfg.Engagement.Timeout,
		Breaker: provider.BreakerConfig{
			MaxFailures: cfg.Engagement.BreakerFailures,
			Timeout:     cfg.Engagement.BreakerTimeout,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("engagement client: %w", err)
	}
	return client, breakerHealth(client.BreakerState), nil
}

func builtinHealth() models.ComponentHealth {
	return models.ComponentHealth{Healthy: true, Mode: "builtin"}
}

func breakerHealth(state func() string) api.HealthCheck {
	return func() models.ComponentHealth {
		s := state()
		return models.ComponentHealth{Healthy: s != "open", State: s, Mode: "remote"}
	}
}

// addr is the listen address of the HTTP server.
func (a *app) addr() string {
	return net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
}

// tree builds the supervisor tree running every service of the app.
func (a *app) tree() (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLoggerFor("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	tree.AddEngineService(a.manager)
	tree.AddEngineService(a.handler.Reaper())

	tree.AddMessagingService(a.hub)
	tree.AddMessagingService(a.router)

	tree.AddAPIService(services.NewHTTPServerService(a.server, a.addr(), a.cfg.Server.ShutdownTimeout))
	return tree, nil
}

// Close releases what the supervisor tree does not own. It waits for
// in-flight engagement submissions first.
func (a *app) Close() error {
	a.ledger.Wait()
	a.unsubscribe()
	return errors.Join(a.bus.Close(), a.registry.Close())
}
