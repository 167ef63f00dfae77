// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reelfeed/internal/actor"
	"github.com/tomtom215/reelfeed/internal/middleware"
)

// Router wires handlers and middleware into a chi route tree.
type Router struct {
	handler       *Handler
	actors        *actor.Resolver
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, actors *actor.Resolver, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		actors:        actors,
		chiMiddleware: NewChiMiddleware(config),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(actor.Middleware(router.actors))
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		// The upgrade must reach the hijackable writer, so no compression.
		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/stats", router.handler.Stats)
			r.Get("/engagement/reactions", router.handler.Reactions)
			r.Get("/engagement/counts", router.handler.Counts)

			r.With(router.chiMiddleware.RateLimitSessionOpen()).Post("/sessions", router.handler.OpenSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetSession)
				r.Delete("/", router.handler.CloseSession)
				r.Get("/events", router.handler.PollSession)

				r.Group(func(r chi.Router) {
					r.Use(router.chiMiddleware.RateLimitInput())
					r.Post("/input", router.handler.SessionInput)
					r.Post("/more", router.handler.LoadMore)
					r.Post("/mute", router.handler.ToggleMute)
					r.Post("/items/{item}/activate", router.handler.ActivateItem)
					r.Post("/items/{item}/playback", router.handler.TogglePlayback)
					r.Post("/items/{item}/reaction", router.handler.ToggleReaction)
					r.Post("/items/{item}/retry", router.handler.RetryItem)
					r.Post("/items/{item}/media/{event}", router.handler.ReportMedia)
				})
			})
		})
	})

	return r
}
