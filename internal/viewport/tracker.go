// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package viewport turns scroll geometry into edge-triggered activation events.
//
// The tracker answers one question for the rest of the engine: which single
// feed item is active right now. It consumes frames (viewport span plus the
// bounds of every rendered item) and emits Entered/Left transitions only when
// the answer changes. Continuous visibility ratios never leave the package.
package viewport

import (
	"sort"
	"sync"
)

// Defaults used when Config fields are zero.
const (
	DefaultThreshold       = 0.6
	DefaultLookaheadMargin = 250.0
)

// Config controls when an item counts as visible.
type Config struct {
	// Threshold is the minimum intersection ratio (0..1] for an item to be
	// visible. Default: 0.6
	Threshold float64

	// LookaheadMargin extends the viewport on both sides, in logical pixels,
	// so items become active slightly before they are on screen.
	// Default: 250
	LookaheadMargin float64
}

// Span is a vertical extent in logical pixels.
type Span struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Bounds is the vertical extent of one rendered feed item.
type Bounds struct {
	ItemID string  `json:"item_id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Frame is one layout observation. Items are in report order; when several
// items become visible in the same frame the last one reported wins.
type Frame struct {
	Viewport Span     `json:"viewport"`
	Items    []Bounds `json:"items"`
}

// Kind is the direction of a transition.
type Kind int

const (
	// Entered means the item became the active item.
	Entered Kind = iota + 1
	// Left means the item stopped being the active item.
	Left
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Entered:
		return "entered"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Reason explains why a transition was emitted.
type Reason string

const (
	ReasonGeometry  Reason = "geometry"
	ReasonDisplaced Reason = "displaced"
	ReasonPromoted  Reason = "promoted"
	ReasonForced    Reason = "forced"
	ReasonForgotten Reason = "forgotten"
)

// Transition is an edge in the active-item pointer.
type Transition struct {
	ItemID string
	Kind   Kind
	Reason Reason
}

// Tracker tracks per-item visibility and the single active item.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	visible map[string]uint64 // item id -> entry sequence
	seq     uint64
	active  string
}

// NewTracker creates a tracker, applying defaults to zero config values.
func NewTracker(cfg Config) *Tracker {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.LookaheadMargin < 0 {
		cfg.LookaheadMargin = 0
	} else if cfg.LookaheadMargin == 0 {
		cfg.LookaheadMargin = DefaultLookaheadMargin
	}
	return &Tracker{
		cfg:     cfg,
		visible: make(map[string]uint64),
	}
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Ratio returns how much of an item lies inside the viewport expanded by the
// lookahead margin. Items taller than the expanded viewport are measured
// against the expanded viewport instead of their own height.
func (t *Tracker) Ratio(vp Span, b Bounds) float64 {
	top := vp.Top - t.cfg.LookaheadMargin
	bottom := vp.Top + vp.Height + t.cfg.LookaheadMargin

	lo := max(top, b.Top)
	hi := min(bottom, b.Top+b.Height)
	overlap := hi - lo
	if overlap <= 0 {
		return 0
	}
	denom := min(b.Height, bottom-top)
	if denom <= 0 {
		return 0
	}
	return min(overlap/denom, 1)
}

// Observe feeds one frame and returns the resulting transitions, in order.
// Items previously visible but missing from the frame are treated as gone.
func (t *Tracker) Observe(f Frame) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		entered    []string
		activeLost bool
		present    = make(map[string]struct{}, len(f.Items))
	)

	for _, b := range f.Items {
		if b.ItemID == "" {
			continue
		}
		present[b.ItemID] = struct{}{}

		_, was := t.visible[b.ItemID]
		is := t.Ratio(f.Viewport, b) >= t.cfg.Threshold
		switch {
		case is && !was:
			t.seq++
			t.visible[b.ItemID] = t.seq
			entered = append(entered, b.ItemID)
		case !is && was:
			delete(t.visible, b.ItemID)
			if b.ItemID == t.active {
				activeLost = true
			}
		}
	}

	for id := range t.visible {
		if _, ok := present[id]; !ok {
			delete(t.visible, id)
			if id == t.active {
				activeLost = true
			}
		}
	}

	var out []Transition
	if n := len(entered); n > 0 {
		out = t.switchTo(entered[n-1], ReasonGeometry, out)
		return out
	}
	if activeLost {
		out = append(out, Transition{ItemID: t.active, Kind: Left, Reason: ReasonGeometry})
		t.active = ""
		out = t.promote(out)
	}
	return out
}

// Force makes itemID the active item regardless of geometry, e.g. for an
// explicit activate() from the UI. The item is marked visible so the next
// frame does not report it again.
func (t *Tracker) Force(itemID string) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if itemID == "" || itemID == t.active {
		return nil
	}
	t.seq++
	t.visible[itemID] = t.seq
	return t.switchTo(itemID, ReasonForced, nil)
}

// Forget drops an item that is no longer rendered.
func (t *Tracker) Forget(itemID string) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.visible[itemID]; !ok && itemID != t.active {
		return nil
	}
	delete(t.visible, itemID)
	if itemID != t.active {
		return nil
	}
	out := []Transition{{ItemID: itemID, Kind: Left, Reason: ReasonForgotten}}
	t.active = ""
	return t.promote(out)
}

// Reset clears all state, emitting Left for the active item if any.
func (t *Tracker) Reset() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Transition
	if t.active != "" {
		out = append(out, Transition{ItemID: t.active, Kind: Left, Reason: ReasonForgotten})
	}
	t.active = ""
	t.visible = make(map[string]uint64)
	return out
}

// Active returns the active item id, or "" if none.
func (t *Tracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Visible returns the visible item ids, oldest entry first.
func (t *Tracker) Visible() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.visible))
	for id := range t.visible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return t.visible[ids[i]] < t.visible[ids[j]]
	})
	return ids
}

// switchTo moves the active pointer (must be called with mu held).
func (t *Tracker) switchTo(itemID string, reason Reason, out []Transition) []Transition {
	if t.active == itemID {
		return out
	}
	if t.active != "" {
		leave := ReasonDisplaced
		if _, still := t.visible[t.active]; !still {
			leave = ReasonGeometry
		}
		out = append(out, Transition{ItemID: t.active, Kind: Left, Reason: leave})
	}
	t.active = itemID
	return append(out, Transition{ItemID: itemID, Kind: Entered, Reason: reason})
}

// promote activates the most recently entered visible item, if any
// (must be called with mu held).
func (t *Tracker) promote(out []Transition) []Transition {
	var (
		best    string
		bestSeq uint64
	)
	for id, seq := range t.visible {
		if seq > bestSeq {
			best, bestSeq = id, seq
		}
	}
	if best == "" {
		return out
	}
	t.active = best
	return append(out, Transition{ItemID: best, Kind: Entered, Reason: ReasonPromoted})
}
