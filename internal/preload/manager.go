// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package preload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// ErrPreloadFailure wraps every error reported by a Preparer.
var ErrPreloadFailure = errors.New("preload failed")

// Defaults used when Config fields are zero.
const (
	DefaultCapacity       = 3
	DefaultIdleTimeout    = 30 * time.Second
	DefaultSweepInterval  = 5 * time.Second
	DefaultPrepareTimeout = 20 * time.Second
)

// Eviction reasons, also used as metric labels.
const (
	ReasonCapacity = "capacity"
	ReasonIdle     = "idle"
	ReasonReleased = "released"
	ReasonFailed   = "failed"
	ReasonClosed   = "closed"
)

// Readiness is the preparation state of one media item.
type Readiness int

const (
	// NotResident means the item holds no pool slot (never requested,
	// queued, or evicted).
	NotResident Readiness = iota
	// Pending means preparation is in flight.
	Pending
	// Ready means the item can start playing without buffering.
	Ready
	// Failed means preparation failed; the item is not retried until Forget.
	Failed
)

// String implements fmt.Stringer.
func (r Readiness) String() string {
	switch r {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "not_resident"
	}
}

// Preparer does the actual buffering work. Prepare must honour ctx
// cancellation; the manager cancels it when the entry is evicted.
type Preparer interface {
	Prepare(ctx context.Context, mediaID, sourceURL string) error
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context, mediaID, sourceURL string) error

// Prepare implements Preparer.
func (f PreparerFunc) Prepare(ctx context.Context, mediaID, sourceURL string) error {
	return f(ctx, mediaID, sourceURL)
}

// Listener receives preparation outcomes. Each callback fires at most once
// per admission and never while the manager lock is held.
type Listener interface {
	PreloadReady(mediaID string)
	PreloadFailed(mediaID string, err error)
}

// Config controls pool size and timing.
type Config struct {
	Capacity       int
	IdleTimeout    time.Duration
	SweepInterval  time.Duration
	PrepareTimeout time.Duration
}

// Want is one entry of a Rebalance call.
type Want struct {
	MediaID   string
	SourceURL string
	Priority  int
}

// Entry is a pool member or queued request.
type Entry struct {
	MediaID    string
	SourceURL  string
	Priority   int
	InsertedAt time.Time
	Readiness  Readiness

	lastRef time.Time
	seq     uint64
	gen     uint64
	cancel  context.CancelFunc
	index   int
}

// Manager keeps at most Capacity media items prepared, favouring the
// highest priorities. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	preparer Preparer
	listener Listener
	now      func() time.Time
	log      zerolog.Logger

	resident *entryHeap
	queued   *entryHeap
	failed   map[string]error

	seq uint64
	gen uint64

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// Option customises a Manager.
type Option func(*Manager)

// WithListener registers the outcome listener.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listener = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a preload manager. Zero config values take defaults.
func NewManager(cfg Config, preparer Preparer, opts ...Option) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.PrepareTimeout <= 0 {
		cfg.PrepareTimeout = DefaultPrepareTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		preparer:   preparer,
		now:        time.Now,
		log:        logging.WithComponent("preload"),
		resident:   newEntryHeap(evictionOrder),
		queued:     newEntryHeap(admissionOrder),
		failed:     make(map[string]error),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// outcome is a listener call collected under the lock and delivered after it.
type outcome struct {
	mediaID string
	err     error
}

// Request asks for mediaID to be prepared at the given priority.
//
// A resident entry only has its priority and reference time refreshed. With
// free capacity preparation starts immediately. With a full pool the lowest
// resident is evicted only when priority is strictly higher; otherwise the
// request is queued and reconsidered whenever a slot frees.
func (m *Manager) Request(mediaID, sourceURL string, priority int) Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || mediaID == "" {
		return NotResident
	}
	m.request(mediaID, sourceURL, priority)
	return m.readinessLocked(mediaID)
}

// Rebalance declares the complete wanted set. Queued requests missing from
// wants are withdrawn; residents missing from wants keep their slot at
// priority zero until evicted by capacity pressure or the idle timeout, so
// quick back-scrolls stay cheap.
func (m *Manager) Rebalance(wants []Want) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	now := m.now()
	wanted := make(map[string]Want, len(wants))
	for _, w := range wants {
		wanted[w.MediaID] = w
	}
	for _, e := range m.queued.All() {
		if _, ok := wanted[e.MediaID]; !ok {
			m.queued.Remove(e.MediaID)
			metrics.PreloadQueued.Dec()
		}
	}

	// Reprioritise residents before admitting anything, so eviction compares
	// against current priorities. Unwanted residents drop to zero and become
	// the first eviction victims.
	for _, e := range m.resident.All() {
		p := 0
		if w, ok := wanted[e.MediaID]; ok {
			p = w.Priority
			e.lastRef = now
		}
		if e.Priority != p {
			e.Priority = p
			m.resident.Fix(e)
		}
	}

	// Highest priority first so the best requests claim free slots.
	ordered := append([]Want(nil), wants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	for _, w := range ordered {
		if w.MediaID == "" {
			continue
		}
		m.request(w.MediaID, w.SourceURL, w.Priority)
	}
}

// Release withdraws mediaID, cancelling any in-flight preparation.
func (m *Manager) Release(mediaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queued.Remove(mediaID) != nil {
		metrics.PreloadQueued.Dec()
	}
	if e := m.resident.Get(mediaID); e != nil {
		m.evict(e, ReasonReleased)
		m.fill()
	}
}

// Forget releases mediaID and clears any remembered failure so a later
// request prepares it again.
func (m *Manager) Forget(mediaID string) {
	m.Release(mediaID)

	m.mu.Lock()
	delete(m.failed, mediaID)
	m.mu.Unlock()
}

// Sweep evicts entries not referenced within the idle timeout and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, e := range m.resident.All() {
		if now.Sub(e.lastRef) > m.cfg.IdleTimeout {
			m.evict(e, ReasonIdle)
			removed++
		}
	}
	for _, e := range m.queued.All() {
		if now.Sub(e.lastRef) > m.cfg.IdleTimeout {
			m.queued.Remove(e.MediaID)
			metrics.PreloadQueued.Dec()
			removed++
		}
	}
	if removed > 0 {
		m.fill()
		m.log.Debug().Int("removed", removed).Msg("Idle preload entries swept")
	}
	return removed
}

// Serve runs the idle sweeper until ctx is cancelled, then closes the
// manager. It satisfies suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *Manager) String() string {
	return "preload-manager"
}

// Close cancels all preparation and empties the pool. Further requests are
// ignored.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, e := range m.resident.All() {
		m.evict(e, ReasonClosed)
	}
	for m.queued.Pop() != nil {
		metrics.PreloadQueued.Dec()
	}
	m.mu.Unlock()

	m.baseCancel()
	m.wg.Wait()
}

// Readiness reports the preparation state of mediaID.
func (m *Manager) Readiness(mediaID string) Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readinessLocked(mediaID)
}

// IsReady reports whether mediaID is prepared.
func (m *Manager) IsReady(mediaID string) bool {
	return m.Readiness(mediaID) == Ready
}

// Resident returns copies of the pool members, highest priority first.
func (m *Manager) Resident() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.resident)
}

// Queued returns copies of the waiting requests, highest priority first.
func (m *Manager) Queued() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.queued)
}

func snapshot(h *entryHeap) []Entry {
	all := h.All()
	sort.Slice(all, func(i, j int) bool { return admissionOrder(all[i], all[j]) })

	out := make([]Entry, len(all))
	for i, e := range all {
		out[i] = Entry{
			MediaID:    e.MediaID,
			SourceURL:  e.SourceURL,
			Priority:   e.Priority,
			InsertedAt: e.InsertedAt,
			Readiness:  e.Readiness,
		}
	}
	return out
}

func (m *Manager) readinessLocked(mediaID string) Readiness {
	if e := m.resident.Get(mediaID); e != nil {
		return e.Readiness
	}
	if _, ok := m.failed[mediaID]; ok {
		return Failed
	}
	return NotResident
}

// request must be called with mu held.
func (m *Manager) request(mediaID, sourceURL string, priority int) {
	now := m.now()

	if e := m.resident.Get(mediaID); e != nil {
		e.lastRef = now
		if e.Priority != priority {
			e.Priority = priority
			m.resident.Fix(e)
		}
		return
	}
	if _, failed := m.failed[mediaID]; failed {
		return
	}

	e := m.queued.Remove(mediaID)
	if e != nil {
		metrics.PreloadQueued.Dec()
		e.Priority = priority
		e.lastRef = now
		if sourceURL != "" {
			e.SourceURL = sourceURL
		}
	} else {
		m.seq++
		e = &Entry{
			MediaID:   mediaID,
			SourceURL: sourceURL,
			Priority:  priority,
			lastRef:   now,
			seq:       m.seq,
		}
	}

	if m.resident.Len() < m.cfg.Capacity {
		m.admit(e)
		return
	}

	victim := m.resident.Peek()
	if victim != nil && priority > victim.Priority {
		m.evict(victim, ReasonCapacity)
		m.admit(e)
		return
	}

	m.queued.Push(e)
	metrics.PreloadQueued.Inc()
}

// admit starts preparing e (must be called with mu held and a free slot).
func (m *Manager) admit(e *Entry) {
	m.gen++
	m.seq++

	e.gen = m.gen
	e.seq = m.seq
	e.InsertedAt = m.now()
	e.Readiness = Pending

	ctx, cancel := context.WithTimeout(m.baseCtx, m.cfg.PrepareTimeout)
	e.cancel = cancel
	m.resident.Push(e)
	metrics.PreloadResident.Inc()

	m.log.Debug().
		Str("media_id", e.MediaID).
		Int("priority", e.Priority).
		Int("resident", m.resident.Len()).
		Msg("Preparing media")

	m.wg.Add(1)
	go m.prepare(ctx, e.MediaID, e.SourceURL, e.gen)
}

// evict removes a resident and cancels its preparation (mu held).
// Capacity victims are re-queued since they are still wanted.
func (m *Manager) evict(e *Entry, reason string) {
	if m.resident.Remove(e.MediaID) == nil {
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	metrics.PreloadResident.Dec()
	metrics.PreloadEvictions.WithLabelValues(reason).Inc()

	m.log.Debug().
		Str("media_id", e.MediaID).
		Str("reason", reason).
		Msg("Preload entry evicted")

	if reason == ReasonCapacity {
		e.Readiness = NotResident
		m.queued.Push(e)
		metrics.PreloadQueued.Inc()
	}
}

// fill admits queued requests while capacity is free (mu held).
func (m *Manager) fill() {
	for !m.closed && m.resident.Len() < m.cfg.Capacity {
		e := m.queued.Pop()
		if e == nil {
			return
		}
		metrics.PreloadQueued.Dec()
		m.admit(e)
	}
}

func (m *Manager) prepare(ctx context.Context, mediaID, sourceURL string, gen uint64) {
	defer m.wg.Done()

	err := m.preparer.Prepare(ctx, mediaID, sourceURL)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	m.complete(mediaID, gen, err)
}

// complete applies a preparation result unless the entry was evicted or
// re-admitted in the meantime.
func (m *Manager) complete(mediaID string, gen uint64, err error) {
	var out *outcome

	m.mu.Lock()
	e := m.resident.Get(mediaID)
	switch {
	case e == nil || e.gen != gen:
		metrics.PreloadOutcomes.WithLabelValues("stale").Inc()
	case err != nil:
		wrapped := fmt.Errorf("%w: %s: %v", ErrPreloadFailure, mediaID, err)
		m.failed[mediaID] = wrapped
		e.Readiness = Failed
		m.evict(e, ReasonFailed)
		m.fill()
		metrics.PreloadOutcomes.WithLabelValues("failed").Inc()
		m.log.Warn().Err(err).Str("media_id", mediaID).Msg("Media preparation failed")
		out = &outcome{mediaID: mediaID, err: wrapped}
	default:
		e.Readiness = Ready
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		metrics.PreloadOutcomes.WithLabelValues("ready").Inc()
		out = &outcome{mediaID: mediaID}
	}
	listener := m.listener
	m.mu.Unlock()

	if out == nil || listener == nil {
		return
	}
	if out.err != nil {
		listener.PreloadFailed(out.mediaID, out.err)
		return
	}
	listener.PreloadReady(out.mediaID)
}
