// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package actor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// anonIDPrefix keeps anonymous ids apart from authenticated ones.
const anonIDPrefix = "anon-"

// maxHeaderIDLength bounds authenticated ids taken from the trusted header.
const maxHeaderIDLength = 128

// ErrInvalidActor is returned for a trusted header that is not a usable id.
var ErrInvalidActor = errors.New("invalid actor id")

// Kind tells authenticated actors from anonymous ones.
type Kind string

const (
	KindUser      Kind = "user"
	KindAnonymous Kind = "anonymous"
)

// Actor is the identity engagement is deduplicated on. ID is opaque to the
// engine.
type Actor struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Issued is set when this request minted a new anonymous id.
	Issued bool `json:"-"`
}

// Config configures actor resolution.
type Config struct {
	TrustedHeader string
	CookieName    string
	CookieMaxAge  time.Duration
	CookieSecure  bool
}

// Resolver identifies the actor behind a request.
//
// An authenticated id comes from the trusted header set by the auth proxy.
// Otherwise the durable anonymous id is read from its cookie, or minted
// once and stored in a long-lived cookie. Clearing the cookie or switching
// device yields a new anonymous actor.
type Resolver struct {
	cfg      Config
	registry *Registry
	now      func() time.Time
}

// NewResolver creates a resolver over registry.
func NewResolver(cfg Config, registry *Registry) *Resolver {
	if cfg.TrustedHeader == "" {
		cfg.TrustedHeader = "X-Actor-ID"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "rf_anon"
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = 400 * 24 * time.Hour
	}
	return &Resolver{cfg: cfg, registry: registry, now: time.Now}
}

// Resolve returns the request's actor, setting the anonymous cookie on w
// when a new id is minted.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (Actor, error) {
	if raw := req.Header.Get(r.cfg.TrustedHeader); raw != "" {
		id := strings.TrimSpace(raw)
		if !validHeaderID(id) {
			return Actor{}, ErrInvalidActor
		}
		return Actor{ID: id, Kind: KindUser}, nil
	}

	now := r.now()
	if c, err := req.Cookie(r.cfg.CookieName); err == nil {
		if id, ok := parseAnonID(c.Value); ok {
			// An id we never issued (restored cookie, second instance) is
			// adopted rather than replaced so the visitor keeps one identity.
			if _, err := r.registry.Touch(id, now); err != nil {
				return Actor{}, err
			}
			return Actor{ID: id, Kind: KindAnonymous}, nil
		}
	}

	id := anonIDPrefix + uuid.NewString()
	if _, err := r.registry.Touch(id, now); err != nil {
		return Actor{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     r.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(r.cfg.CookieMaxAge.Seconds()),
		Expires:  now.Add(r.cfg.CookieMaxAge),
		HttpOnly: true,
		Secure:   r.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	metrics.ActorsIssued.Inc()
	logging.CtxDebug(req.Context()).Str("actor_id", logging.SanitizeActorID(id)).Msg("Anonymous actor issued")
	return Actor{ID: id, Kind: KindAnonymous, Issued: true}, nil
}

// parseAnonID accepts only ids this service could have minted.
func parseAnonID(v string) (string, bool) {
	rest, ok := strings.CutPrefix(v, anonIDPrefix)
	if !ok {
		return "", false
	}
	u, err := uuid.Parse(rest)
	if err != nil || u.Version() != 4 {
		return "", false
	}
	return anonIDPrefix + u.String(), true
}

func validHeaderID(id string) bool {
	if id == "" || len(id) > maxHeaderIDLength || strings.HasPrefix(id, anonIDPrefix) {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

type ctxKey struct{}

// NewContext returns ctx carrying a.
func NewContext(ctx context.Context, a Actor) context.Context {
	ctx = logging.ContextWithActorID(ctx, a.ID)
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored by Middleware.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// Middleware resolves the actor of every request and stores it in the
// request context. Requests with an unusable trusted header are rejected.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			a, err := r.Resolve(w, req)
			if errors.Is(err, ErrInvalidActor) {
				http.Error(w, "invalid actor", http.StatusBadRequest)
				return
			}
			if err != nil {
				logging.CtxErr(req.Context(), err).Msg("Actor resolution failed")
				http.Error(w, "actor resolution failed", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), a)))
		})
	}
}
