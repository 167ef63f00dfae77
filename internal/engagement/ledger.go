// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package engagement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// DefaultSubmitTimeout bounds one call to the engagement service.
const DefaultSubmitTimeout = 10 * time.Second

type mutation struct {
	version  uint64
	value    Reaction // "" means no reaction
	at       time.Time
	sent     bool
	notifier Notifier
}

// slot is the state of one (key, actor) pair.
type slot struct {
	confirmed   Reaction
	confirmedAt time.Time
	confirmedV  uint64
	pending     []*mutation // ascending version
	nextV       uint64
	inflight    bool
}

// visible is the highest-version pending mutation, else the last confirmed
// value.
func (s *slot) visible() (Reaction, time.Time) {
	if n := len(s.pending); n > 0 {
		m := s.pending[n-1]
		return m.value, m.at
	}
	return s.confirmed, s.confirmedAt
}

type item struct {
	// refs counts Retain calls not yet released. An item released to zero
	// is dropped as soon as no mutation of it is pending.
	refs     int
	orphaned bool

	seeded   bool
	baseline map[Reaction]int
	// actor reactions already included in baseline
	seededActors map[string]Reaction
	slots        map[string]*slot
}

// Ledger aggregates reactions per canonical key with optimistic local writes
// and versioned rollback. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	queue    []Change
	items    map[identity.Key]*item
	allowed  map[Reaction]struct{}
	service  Service
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger

	subMu  sync.RWMutex
	subs   map[uint64]func(Change)
	nextID uint64

	wg sync.WaitGroup
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithReactions replaces the reaction allow-list.
func WithReactions(rs []Reaction) Option {
	return func(l *Ledger) {
		if len(rs) == 0 {
			return
		}
		l.allowed = make(map[Reaction]struct{}, len(rs))
		for _, r := range rs {
			l.allowed[r] = struct{}{}
		}
	}
}

// WithSubmitTimeout bounds each service call.
func WithSubmitTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger submitting through service.
func NewLedger(service Service, opts ...Option) *Ledger {
	l := &Ledger{
		items:   make(map[identity.Key]*item),
		service: service,
		timeout: DefaultSubmitTimeout,
		now:     time.Now,
		log:     logging.WithComponent("engagement"),
		subs:    make(map[uint64]func(Change)),
	}
	WithReactions(DefaultReactions)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reactions returns the allow-list, sorted.
func (l *Ledger) Reactions() []Reaction {
	out := make([]Reaction, 0, len(l.allowed))
	for r := range l.allowed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Allowed reports whether r is in the allow-list.
func (l *Ledger) Allowed(r Reaction) bool {
	_, ok := l.allowed[r]
	return ok
}

// Seed installs the server-side baseline for key and the actor's existing
// reaction. The baseline is taken only once per key; an actor is seeded only
// before its first local mutation. It reports whether anything changed.
func (l *Ledger) Seed(key identity.Key, actor string, init Initial) bool {
	l.mu.Lock()
	it := l.item(key)
	changed := false
	if !it.seeded {
		it.seeded = true
		it.baseline = make(map[Reaction]int, len(init.Counts))
		for r, n := range init.Counts {
			if n > 0 {
				it.baseline[r] = n
			}
		}
		changed = true
	}
	if actor != "" {
		if _, known := it.seededActors[actor]; !known {
			if _, mutated := it.slots[actor]; !mutated {
				it.seededActors[actor] = init.ActorReaction
				changed = true
			}
		}
	}
	if !changed {
		l.mu.Unlock()
		return false
	}
	l.publish(Change{Key: key, Actor: actor, Counts: it.counts()})
	return true
}

// Load seeds key for actor from the service unless already seeded.
func (l *Ledger) Load(ctx context.Context, key identity.Key, actor string) error {
	if l.IsSeeded(key, actor) {
		return nil
	}
	init, err := l.service.FetchInitialCounts(ctx, key, actor)
	if err != nil {
		return fmt.Errorf("%w: fetch counts for %s: %v", ErrSyncFailure, key, err)
	}
	l.Seed(key, actor, init)
	return nil
}

// Retain keeps key in the ledger until a matching Release.
func (l *Ledger) Retain(key identity.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it := l.item(key)
	it.refs++
	it.orphaned = false
}

// Release drops one Retain of key. When the last one is released the key is
// forgotten, once its pending mutations have resolved.
func (l *Ledger) Release(key identity.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[key]
	if !ok || it.refs == 0 {
		return
	}
	it.refs--
	if it.refs == 0 {
		it.orphaned = true
		l.dropIfIdle(key, it)
	}
}

// Len returns the number of keys the ledger holds.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// IsSeeded reports whether key has a baseline and actor's server-side
// reaction is known.
func (l *Ledger) IsSeeded(key identity.Key, actor string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[key]
	if !ok || !it.seeded {
		return false
	}
	if actor == "" {
		return true
	}
	return it.actorSeeded(actor)
}

// React sets actor's reaction on key to r. Reacting with the current
// reaction is a no-op, so repeated calls never double count. Counts are
// loaded from the service first when key or actor is not seeded yet. The
// local state then changes immediately; submission happens in the background
// and a rejection rolls it back and tells n (which may be nil).
func (l *Ledger) React(ctx context.Context, key identity.Key, actor string, r Reaction, n Notifier) (Counts, error) {
	if !l.Allowed(r) {
		return Counts{}, fmt.Errorf("%w: %q", ErrUnknownReaction, r)
	}
	return l.mutate(ctx, key, actor, r, n)
}

// Unreact clears actor's reaction on key.
func (l *Ledger) Unreact(ctx context.Context, key identity.Key, actor string, n Notifier) (Counts, error) {
	return l.mutate(ctx, key, actor, "", n)
}

// CountsFor derives the counts of key by scanning the baseline and every
// actor's visible reaction.
func (l *Ledger) CountsFor(key identity.Key) Counts {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[key]
	if !ok {
		return Counts{ByType: map[Reaction]int{}}
	}
	return it.counts()
}

// HasReacted returns actor's visible reaction on key.
func (l *Ledger) HasReacted(key identity.Key, actor string) (Reaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[key]
	if !ok {
		return "", false
	}
	r := it.actorReaction(actor)
	return r, r != ""
}

// Records returns the visible local records of key, ordered by actor.
func (l *Ledger) Records(key identity.Key) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[key]
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(it.slots))
	for actor, s := range it.slots {
		if r, at := s.visible(); r != "" {
			out = append(out, Record{Key: key, Actor: actor, Reaction: r, At: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}

// Subscribe registers fn for change notifications and returns a function that
// removes it. Changes are delivered in order, one at a time.
func (l *Ledger) Subscribe(fn func(Change)) func() {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

// Wait blocks until all in-flight submissions have resolved.
func (l *Ledger) Wait() {
	l.wg.Wait()
}

func (l *Ledger) item(key identity.Key) *item {
	it, ok := l.items[key]
	if !ok {
		it = &item{
			baseline:     make(map[Reaction]int),
			seededActors: make(map[string]Reaction),
			slots:        make(map[string]*slot),
		}
		l.items[key] = it
		metrics.EngagementItems.Inc()
	}
	return it
}

// dropIfIdle forgets an orphaned item with nothing in flight (mu held).
func (l *Ledger) dropIfIdle(key identity.Key, it *item) {
	if !it.orphaned {
		return
	}
	for _, s := range it.slots {
		if s.inflight || len(s.pending) > 0 {
			return
		}
	}
	delete(l.items, key)
	metrics.EngagementItems.Dec()
}

// actorSeeded reports whether actor's server-side reaction is known (mu held).
func (it *item) actorSeeded(actor string) bool {
	if !it.seeded {
		return false
	}
	if _, ok := it.seededActors[actor]; ok {
		return true
	}
	_, ok := it.slots[actor]
	return ok
}

func (it *item) actorReaction(actor string) Reaction {
	if s, ok := it.slots[actor]; ok {
		r, _ := s.visible()
		return r
	}
	return it.seededActors[actor]
}

// counts is baseline minus the seeded actor reactions plus every actor's
// visible reaction.
func (it *item) counts() Counts {
	by := make(map[Reaction]int, len(it.baseline))
	for r, n := range it.baseline {
		by[r] = n
	}
	for actor, s := range it.slots {
		if seeded := it.seededActors[actor]; seeded != "" {
			by[seeded]--
		}
		if r, _ := s.visible(); r != "" {
			by[r]++
		}
	}

	total := 0
	for r, n := range by {
		if n <= 0 {
			delete(by, r)
			continue
		}
		total += n
	}
	return Counts{ByType: by, Total: total}
}

func (l *Ledger) mutate(ctx context.Context, key identity.Key, actor string, r Reaction, n Notifier) (Counts, error) {
	if key.IsZero() {
		return Counts{}, fmt.Errorf("%w: empty key", identity.ErrInvalidMediaReference)
	}
	if actor == "" {
		return Counts{}, fmt.Errorf("engagement: empty actor")
	}
	if err := l.Load(ctx, key, actor); err != nil {
		return Counts{}, err
	}
	op := opName(r)

	l.mu.Lock()
	it, ok := l.items[key]
	if !ok || !it.actorSeeded(actor) {
		// Released and forgotten between Load and here.
		l.mu.Unlock()
		return Counts{}, fmt.Errorf("%w: %s", ErrNotSeeded, key)
	}
	s, ok := it.slots[actor]
	if !ok {
		s = &slot{confirmed: it.seededActors[actor]}
		it.slots[actor] = s
	}
	if cur, _ := s.visible(); cur == r {
		counts := it.counts()
		l.mu.Unlock()
		metrics.EngagementMutations.WithLabelValues(op, "noop").Inc()
		return counts, nil
	}

	s.nextV++
	s.pending = append(s.pending, &mutation{
		version:  s.nextV,
		value:    r,
		at:       l.now(),
		notifier: n,
	})
	startDrain := !s.inflight
	s.inflight = true
	counts := it.counts()
	metrics.EngagementMutations.WithLabelValues(op, "applied").Inc()

	if startDrain {
		l.wg.Add(1)
		go l.drain(context.WithoutCancel(ctx), key, actor, s)
	}
	l.publish(Change{Key: key, Actor: actor, Counts: counts})
	return counts, nil
}

// drain submits the slot's newest unsent mutation, one request at a time, so
// the service sees mutations of one (key, actor) in version order. Older
// unsent mutations are superseded and never sent.
func (l *Ledger) drain(ctx context.Context, key identity.Key, actor string, s *slot) {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		m := s.nextUnsent()
		if m == nil {
			s.inflight = false
			if it, ok := l.items[key]; ok {
				l.dropIfIdle(key, it)
			}
			l.mu.Unlock()
			return
		}
		m.sent = true
		l.mu.Unlock()

		err := l.submit(ctx, key, actor, m.value)
		l.resolve(key, actor, m.version, err)
	}
}

// nextUnsent marks older unsent mutations as superseded and returns the
// newest unsent one.
func (s *slot) nextUnsent() *mutation {
	var newest *mutation
	kept := s.pending[:0]
	for i, m := range s.pending {
		if m.sent {
			kept = append(kept, m)
			continue
		}
		if i == len(s.pending)-1 {
			newest = m
			kept = append(kept, m)
			continue
		}
		metrics.EngagementMutations.WithLabelValues(opName(m.value), "superseded").Inc()
	}
	s.pending = kept
	return newest
}

func (l *Ledger) submit(ctx context.Context, key identity.Key, actor string, r Reaction) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if r == "" {
		return l.service.SubmitUnreaction(ctx, key, actor)
	}
	return l.service.SubmitReaction(ctx, key, actor, r)
}

// resolve applies the service outcome for one mutation version. Outcomes for
// versions that are no longer pending are ignored.
func (l *Ledger) resolve(key identity.Key, actor string, version uint64, err error) {
	l.mu.Lock()
	it := l.items[key]
	s := it.slots[actor]

	idx := -1
	for i, m := range s.pending {
		if m.version == version {
			idx = i
			break
		}
	}
	if idx < 0 || version <= s.confirmedV {
		l.mu.Unlock()
		metrics.EngagementMutations.WithLabelValues("ack", "stale").Inc()
		return
	}
	m := s.pending[idx]
	before, _ := s.visible()

	if err == nil {
		s.confirmed, s.confirmedAt, s.confirmedV = m.value, m.at, m.version
		// Everything up to and including this version is settled.
		s.pending = append([]*mutation(nil), s.pending[idx+1:]...)
		l.mu.Unlock()
		metrics.EngagementMutations.WithLabelValues(opName(m.value), "confirmed").Inc()
		return
	}

	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	after, _ := s.visible()
	syncErr := fmt.Errorf("%w: %v", ErrSyncFailure, err)
	metrics.EngagementMutations.WithLabelValues(opName(m.value), "rejected").Inc()

	if before == after {
		l.mu.Unlock()
		l.log.Debug().Err(err).Str("key", key.String()).Msg("Superseded reaction rejected")
		return
	}

	metrics.EngagementRollbacks.Inc()
	l.log.Warn().
		Err(err).
		Str("key", key.String()).
		Str("reaction", string(m.value)).
		Str("restored", string(after)).
		Msg("Reaction rolled back")

	l.publish(Change{Key: key, Actor: actor, Counts: it.counts(), RolledBack: true})
	if m.notifier != nil {
		m.notifier.EngagementSyncFailed(key, syncErr)
	}
}

// publish queues ch for delivery. It must be called with mu held and returns
// with mu released.
func (l *Ledger) publish(ch Change) {
	l.queue = append(l.queue, ch)
	l.mu.Unlock()
	l.flush()
}

// flush delivers queued changes in order. Only one goroutine delivers at a
// time; a publish that finds delivery in progress leaves its change to the
// active deliverer.
func (l *Ledger) flush() {
	for {
		if !l.notifyMu.TryLock() {
			return
		}
		for {
			l.mu.Lock()
			batch := l.queue
			l.queue = nil
			l.mu.Unlock()
			if len(batch) == 0 {
				break
			}

			l.subMu.RLock()
			subs := make([]func(Change), 0, len(l.subs))
			for _, fn := range l.subs {
				subs = append(subs, fn)
			}
			l.subMu.RUnlock()

			for _, ch := range batch {
				for _, fn := range subs {
					fn(ch)
				}
			}
		}
		l.notifyMu.Unlock()

		l.mu.Lock()
		more := len(l.queue) > 0
		l.mu.Unlock()
		if !more {
			return
		}
	}
}

func opName(r Reaction) string {
	if r == "" {
		return "unreact"
	}
	return "react"
}
