// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package playback

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

type slot struct {
	itemID string
	kind   Kind
	res    Resource
	state  State
	muted  bool
	err    error
}

// Coordinator owns the single playback slot of one session: at most one item
// is Playing at any instant, and the previous item is always paused before
// the next one is committed. It is safe for concurrent use.
type Coordinator struct {
	mu        sync.Mutex
	slots     map[string]*slot
	active    string
	muted     bool
	readiness ReadinessReader
	observers []Observer
	log       zerolog.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithObserver adds a transition observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithMuted sets the initial global mute flag. Default: true, since
// browsers only autoplay muted media.
func WithMuted(muted bool) Option {
	return func(c *Coordinator) { c.muted = muted }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a coordinator. readiness may be nil, in which case
// every load is unprepared.
func NewCoordinator(readiness ReadinessReader, opts ...Option) *Coordinator {
	c := &Coordinator{
		slots:     make(map[string]*slot),
		muted:     true,
		readiness: readiness,
		log:       logging.WithComponent("playback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register attaches a resource to an item. Images are tracked so they can be
// active, but never take the playback slot; their resource may be nil.
// Re-registering stops the old resource, replaces it and resets the item to
// Idle.
func (c *Coordinator) Register(itemID string, kind Kind, res Resource) {
	var out []Transition

	c.mu.Lock()
	if old, ok := c.slots[itemID]; ok {
		out = c.reset(old, out)
	}
	c.slots[itemID] = &slot{itemID: itemID, kind: kind, res: res, muted: true}
	c.mu.Unlock()

	c.notify(out)
}

// Unregister detaches an item, stopping it first.
func (c *Coordinator) Unregister(itemID string) {
	var out []Transition

	c.mu.Lock()
	if s, ok := c.slots[itemID]; ok {
		out = c.reset(s, out)
		delete(c.slots, itemID)
	}
	if c.active == itemID {
		c.active = ""
	}
	c.mu.Unlock()

	c.notify(out)
}

// Enter makes itemID the active item. A playable item in Idle or Paused
// starts Preparing; an Errored item stays Errored until it leaves.
// Any other item still holding the slot is reset first.
func (c *Coordinator) Enter(itemID string) {
	var out []Transition

	c.mu.Lock()
	if c.active != "" && c.active != itemID {
		if prev, ok := c.slots[c.active]; ok {
			out = c.reset(prev, out)
		}
	}
	c.active = itemID
	if s, ok := c.slots[itemID]; ok {
		out = c.prepare(s, out)
	}
	c.mu.Unlock()

	c.notify(out)
}

// Started is reported by the resource once playback actually begins. Every
// other Playing item is paused, rewound and muted before the item is
// committed as Playing. A repeated start of the active Playing item (after a
// resume or a buffering stall) changes nothing. Starts from items that are
// no longer active, or not preparing, are answered by stopping that resource.
func (c *Coordinator) Started(itemID string) bool {
	var out []Transition

	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || s.res == nil {
		c.mu.Unlock()
		return false
	}
	if s.state == Playing && c.active == itemID {
		c.mu.Unlock()
		return true
	}
	if s.state != Preparing || c.active != itemID {
		s.res.Pause()
		s.res.Seek(0)
		s.res.SetMuted(true)
		s.muted = true
		st := s.state
		c.mu.Unlock()

		metrics.PlaybackStaleStarts.Inc()
		c.log.Debug().Str("item_id", itemID).Str("state", st.String()).Msg("Stale playback start stopped")
		return false
	}

	out = c.pauseOthers(itemID, out)
	out = c.setState(s, Playing, nil, out)
	c.mu.Unlock()

	c.notify(out)
	return true
}

// Leave handles the item leaving the viewport: Preparing, Playing and Paused
// items are paused, muted and rewound to zero; Errored items return to Idle
// so the next entry is a fresh attempt.
func (c *Coordinator) Leave(itemID string) {
	var out []Transition

	c.mu.Lock()
	if s, ok := c.slots[itemID]; ok {
		out = c.reset(s, out)
	}
	if c.active == itemID {
		c.active = ""
	}
	c.mu.Unlock()

	c.notify(out)
}

// Toggle flips the active item between Playing and Paused (manual tap).
// An active Idle item is prepared instead. Inactive items are ignored.
func (c *Coordinator) Toggle(itemID string) State {
	var out []Transition

	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || c.active != itemID || !s.kind.Playable() {
		st := Idle
		if ok {
			st = s.state
		}
		c.mu.Unlock()
		return st
	}

	switch s.state {
	case Playing:
		s.res.Pause()
		out = c.setState(s, Paused, nil, out)
	case Paused:
		out = c.pauseOthers(itemID, out)
		s.res.SetMuted(c.muted)
		s.muted = c.muted
		s.res.Play()
		out = c.setState(s, Playing, nil, out)
	case Idle:
		out = c.prepare(s, out)
	}
	st := s.state
	c.mu.Unlock()

	c.notify(out)
	return st
}

// ToggleMute flips the global mute flag and returns the new value.
func (c *Coordinator) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyMuted(!c.muted)
	return c.muted
}

// SetMuted sets the global mute flag. Only the active item is affected;
// items activated later inherit the value.
func (c *Coordinator) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyMuted(muted)
}

// Muted returns the global mute flag.
func (c *Coordinator) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Failed records a decode or network error. The item becomes Errored, shows
// its fallback and is not retried automatically. Failures of items that are
// not preparing, playing or paused are late reports and are ignored.
func (c *Coordinator) Failed(itemID string, cause error) {
	var out []Transition

	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || s.res == nil {
		c.mu.Unlock()
		return
	}
	switch st := s.state; st {
	case Preparing, Playing, Paused:
	default:
		c.mu.Unlock()
		c.log.Debug().Str("item_id", itemID).Str("state", st.String()).Msg("Late media failure ignored")
		return
	}
	err := fmt.Errorf("%w: %s: %v", ErrMediaDecode, itemID, cause)
	s.res.Pause()
	out = c.setState(s, Errored, err, out)
	c.mu.Unlock()

	metrics.PlaybackErrors.Inc()
	c.log.Warn().Err(cause).Str("item_id", itemID).Msg("Media playback failed")
	c.notify(out)
}

// Retry clears an Errored item. When the item is active it is prepared again
// immediately. It reports whether the item was Errored.
func (c *Coordinator) Retry(itemID string) bool {
	var out []Transition

	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || s.state != Errored {
		c.mu.Unlock()
		return false
	}
	out = c.setState(s, Idle, nil, out)
	if c.active == itemID {
		out = c.prepare(s, out)
	}
	c.mu.Unlock()

	c.notify(out)
	return true
}

// Active returns the active item id.
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot returns the playback state of one item.
func (c *Coordinator) Snapshot(itemID string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[itemID]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(s), true
}

// Snapshots returns every registered item, ordered by id.
func (c *Coordinator) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Snapshot, 0, len(c.slots))
	for _, s := range c.slots {
		out = append(out, snapshotOf(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// PlayingCount returns how many items are Playing. It never exceeds one.
func (c *Coordinator) PlayingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.slots {
		if s.state == Playing {
			n++
		}
	}
	return n
}

func snapshotOf(s *slot) Snapshot {
	return Snapshot{
		ItemID:       s.itemID,
		Kind:         s.kind,
		State:        s.state,
		Muted:        s.muted,
		ShowFallback: s.state == Errored,
		Err:          s.err,
	}
}

// prepare moves an Idle or Paused playable item to Preparing (mu held).
func (c *Coordinator) prepare(s *slot, out []Transition) []Transition {
	if !s.kind.Playable() {
		return out
	}
	if s.state != Idle && s.state != Paused {
		return out
	}

	prepared := c.readiness != nil && c.readiness.IsReady(s.itemID)
	s.res.SetMuted(c.muted)
	s.muted = c.muted
	s.res.Load(prepared)
	return c.setState(s, Preparing, nil, out)
}

// reset stops an item and rewinds it (mu held).
func (c *Coordinator) reset(s *slot, out []Transition) []Transition {
	switch s.state {
	case Preparing, Playing, Paused:
		s.res.Pause()
		s.res.SetMuted(true)
		s.res.Seek(0)
		s.muted = true
		return c.setState(s, Idle, nil, out)
	case Errored:
		return c.setState(s, Idle, nil, out)
	}
	return out
}

// pauseOthers pauses, rewinds and mutes every Playing item except keep
// (mu held).
func (c *Coordinator) pauseOthers(keep string, out []Transition) []Transition {
	for id, other := range c.slots {
		if id == keep || other.state != Playing {
			continue
		}
		other.res.Pause()
		other.res.Seek(0)
		other.res.SetMuted(true)
		other.muted = true
		out = c.setState(other, Paused, nil, out)
	}
	return out
}

// applyMuted updates the global flag and the active item (mu held).
func (c *Coordinator) applyMuted(muted bool) {
	c.muted = muted
	s, ok := c.slots[c.active]
	if !ok || !s.kind.Playable() {
		return
	}
	switch s.state {
	case Preparing, Playing, Paused:
		s.res.SetMuted(muted)
		s.muted = muted
	}
}

func (c *Coordinator) setState(s *slot, to State, err error, out []Transition) []Transition {
	from := s.state
	s.state = to
	s.err = err
	if from == to {
		return out
	}
	if to == Playing {
		metrics.PlaybackPlaying.Inc()
	} else if from == Playing {
		metrics.PlaybackPlaying.Dec()
	}
	metrics.PlaybackTransitions.WithLabelValues(from.String(), to.String()).Inc()
	return append(out, Transition{ItemID: s.itemID, From: from, To: to, Err: err})
}

func (c *Coordinator) notify(out []Transition) {
	if len(out) == 0 {
		return
	}
	for _, t := range out {
		for _, o := range c.observers {
			o(t)
		}
	}
}
