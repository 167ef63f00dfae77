// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/playback"
	"github.com/tomtom215/reelfeed/internal/preload"
	"github.com/tomtom215/reelfeed/internal/viewport"
)

// DefaultPrefetchDistance is how close to the end of the loaded items the
// active item may get before the next page is fetched.
const DefaultPrefetchDistance = 3

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("feed session not found")

	// ErrInvalidSession is returned for malformed session options.
	ErrInvalidSession = errors.New("invalid session options")
)

// Config holds engine settings shared by every session.
type Config struct {
	Viewport         viewport.Config
	Preload          preload.Config
	PrefetchDistance int
	StartMuted       bool
	TrustRawIDs      bool
}

// SessionOptions describes a session to open.
type SessionOptions struct {
	Actor   string
	Surface Surface
	OwnerID string
	Sink    Sink

	// Preparer overrides client-side preloading, e.g. for simulations.
	Preparer preload.Preparer
}

// Manager owns all live sessions. Sessions share one engagement ledger and
// one identity resolver, so every rendering of the same asset aggregates on
// the same key.
type Manager struct {
	cfg      Config
	catalog  Catalog
	ledger   *engagement.Ledger
	resolver identity.Resolver
	log      zerolog.Logger

	onPlayback func(sessionID string, t playback.Transition)
	onSession  func(s *Session, opened bool)

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithPlaybackObserver receives every playback transition of every session.
func WithPlaybackObserver(fn func(sessionID string, t playback.Transition)) ManagerOption {
	return func(m *Manager) { m.onPlayback = fn }
}

// WithSessionObserver is told when a session opens and when it closes.
func WithSessionObserver(fn func(s *Session, opened bool)) ManagerOption {
	return func(m *Manager) { m.onSession = fn }
}

// NewManager creates a session manager.
func NewManager(cfg Config, catalog Catalog, ledger *engagement.Ledger, opts ...ManagerOption) *Manager {
	if cfg.PrefetchDistance <= 0 {
		cfg.PrefetchDistance = DefaultPrefetchDistance
	}
	m := &Manager{
		cfg:      cfg,
		catalog:  catalog,
		ledger:   ledger,
		resolver: identity.Resolver{TrustRawIDs: cfg.TrustRawIDs},
		log:      logging.WithComponent("feed"),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ledger returns the shared engagement ledger.
func (m *Manager) Ledger() *engagement.Ledger {
	return m.ledger
}

// Open creates a session and loads its first page. A failing first page
// does not prevent the session from opening; the sink gets a notice and the
// client may retry through LoadNextPage.
func (m *Manager) Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Actor == "" || opts.Sink == nil {
		return nil, fmt.Errorf("%w: actor and sink are required", ErrInvalidSession)
	}

	var provider ContentProvider
	switch opts.Surface {
	case SurfaceFeed, "":
		opts.Surface = SurfaceFeed
		provider = m.catalog.Feed()
	case SurfaceProfile:
		if opts.OwnerID == "" {
			return nil, fmt.Errorf("%w: profile sessions need an owner", ErrInvalidSession)
		}
		provider = m.catalog.Profile(opts.OwnerID)
	default:
		return nil, fmt.Errorf("%w: unknown surface %q", ErrInvalidSession, opts.Surface)
	}

	s := m.newSession(opts, provider)

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.FeedSessions.Inc()

	m.log.Info().
		Str("session_id", s.id).
		Str("surface", string(s.surface)).
		Int("sessions", n).
		Msg("Feed session opened")
	m.notify(s, true)

	if _, err := s.LoadNextPage(ctx); err != nil {
		logging.CtxWarn(ctx).Err(err).Str("session_id", s.id).Msg("First feed page unavailable")
	}
	return s, nil
}

func (m *Manager) newSession(opts SessionOptions, provider ContentProvider) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.ContextWithCorrelationID(ctx, id[:8])

	s := &Session{
		id:         id,
		actor:      opts.Actor,
		surface:    opts.Surface,
		ownerID:    opts.OwnerID,
		provider:   provider,
		ledger:     m.ledger,
		resolver:   m.resolver,
		sink:       opts.Sink,
		prefetch:   m.cfg.PrefetchDistance,
		tracker:    viewport.NewTracker(m.cfg.Viewport),
		remote:     newRemotePreparer(opts.Sink),
		log:        m.log.With().Str("session_id", id).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		onPlayback: m.onPlayback,
		byID:       make(map[string]*entry),
		byKey:      make(map[identity.Key][]string),
	}

	var preparer preload.Preparer = s.remote
	if opts.Preparer != nil {
		preparer = opts.Preparer
	}
	s.preload = preload.NewManager(m.cfg.Preload, preparer,
		preload.WithListener(s),
		preload.WithLogger(s.log.With().Str("component", "preload").Logger()),
	)
	s.coord = playback.NewCoordinator(s.preload,
		playback.WithMuted(m.cfg.StartMuted),
		playback.WithObserver(s.onTransition),
		playback.WithLogger(s.log.With().Str("component", "playback").Logger()),
	)
	s.unsubscribe = m.ledger.Subscribe(s.onLedgerChange)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close closes and forgets one session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	metrics.FeedSessions.Dec()
	m.log.Info().Str("session_id", id).Msg("Feed session closed")
	m.notify(s, false)
	return nil
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		metrics.FeedSessions.Dec()
		m.notify(s, false)
	}
}

func (m *Manager) notify(s *Session, opened bool) {
	if m.onSession != nil {
		m.onSession(s, opened)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SessionIDs returns the live session ids, sorted.
func (m *Manager) SessionIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// CountsFor returns the aggregated counts of a canonical key across every
// rendering context.
func (m *Manager) CountsFor(key identity.Key) engagement.Counts {
	return m.ledger.CountsFor(key)
}

// Sweep evicts idle preload entries in every session.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	removed := 0
	for _, s := range all {
		removed += s.preload.Sweep(now)
	}
	return removed
}

// Serve runs the preload sweeper for all sessions until ctx is cancelled,
// then closes every session. It satisfies suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	interval := m.cfg.Preload.SweepInterval
	if interval <= 0 {
		interval = preload.DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return ctx.Err()
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *Manager) String() string {
	return "feed-manager"
}
