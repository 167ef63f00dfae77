// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package viewport

import (
	"reflect"
	"testing"
)

const screen = 800.0

// feedFrame lays out n full-screen items and scrolls to offset.
func feedFrame(offset float64, ids ...string) Frame {
	items := make([]Bounds, len(ids))
	for i, id := range ids {
		items[i] = Bounds{ItemID: id, Top: float64(i) * screen, Height: screen}
	}
	return Frame{Viewport: Span{Top: offset, Height: screen}, Items: items}
}

func TestNewTracker_Defaults(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{})
	cfg := tr.Config()
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %v, want %v", cfg.Threshold, DefaultThreshold)
	}
	if cfg.LookaheadMargin != DefaultLookaheadMargin {
		t.Errorf("LookaheadMargin = %v, want %v", cfg.LookaheadMargin, DefaultLookaheadMargin)
	}

	tr = NewTracker(Config{Threshold: 2, LookaheadMargin: -1})
	if tr.Config().Threshold != DefaultThreshold || tr.Config().LookaheadMargin != 0 {
		t.Errorf("invalid config not normalized: %+v", tr.Config())
	}
}

func TestTracker_Ratio(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.5, LookaheadMargin: 200})
	vp := Span{Top: 0, Height: screen}

	tests := []struct {
		name string
		b    Bounds
		want float64
	}{
		{"fully inside", Bounds{Top: 0, Height: screen}, 1},
		{"inside margin only", Bounds{Top: 900, Height: 400}, 0.25},
		{"beyond margin", Bounds{Top: 1100, Height: 400}, 0},
		{"above margin", Bounds{Top: -700, Height: 400}, 0},
		{"taller than viewport", Bounds{Top: -1000, Height: 5000}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tr.Ratio(vp, tt.b); got != tt.want {
				t.Errorf("Ratio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTracker_EdgeTriggered(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.6, LookaheadMargin: 1})
	ids := []string{"A", "B"}

	got := tr.Observe(feedFrame(0, ids...))
	want := []Transition{{ItemID: "A", Kind: Entered, Reason: ReasonGeometry}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("first frame = %+v, want %+v", got, want)
	}

	// Same geometry again: no events.
	if got := tr.Observe(feedFrame(10, ids...)); len(got) != 0 {
		t.Errorf("repeated frame emitted %+v", got)
	}
}

func TestTracker_ScrollForward(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.6, LookaheadMargin: 1})
	ids := []string{"A", "B", "C"}

	tr.Observe(feedFrame(0, ids...))
	got := tr.Observe(feedFrame(screen, ids...))
	want := []Transition{
		{ItemID: "A", Kind: Left, Reason: ReasonGeometry},
		{ItemID: "B", Kind: Entered, Reason: ReasonGeometry},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("scroll A->B = %+v, want %+v", got, want)
	}
	if tr.Active() != "B" {
		t.Errorf("Active() = %q, want B", tr.Active())
	}
}

func TestTracker_SameTickMostRecentWins(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.1, LookaheadMargin: 1})

	// Both A and B report entered in the same frame (fast scroll landing
	// between them). B is reported last and must win.
	frame := Frame{
		Viewport: Span{Top: 400, Height: screen},
		Items: []Bounds{
			{ItemID: "A", Top: 0, Height: screen},
			{ItemID: "B", Top: screen, Height: screen},
		},
	}
	got := tr.Observe(frame)
	want := []Transition{{ItemID: "B", Kind: Entered, Reason: ReasonGeometry}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("same tick = %+v, want %+v", got, want)
	}
	if tr.Active() != "B" {
		t.Errorf("Active() = %q, want B", tr.Active())
	}
}

func TestTracker_DisplacedWithoutExplicitLeave(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.1, LookaheadMargin: 1})

	tr.Observe(Frame{Viewport: Span{Top: 0, Height: screen}, Items: []Bounds{
		{ItemID: "A", Top: 0, Height: screen},
		{ItemID: "B", Top: screen + 100, Height: screen},
	}})
	if tr.Active() != "A" {
		t.Fatalf("Active() = %q, want A", tr.Active())
	}

	// B enters while A is still geometrically visible.
	got := tr.Observe(Frame{Viewport: Span{Top: 400, Height: screen}, Items: []Bounds{
		{ItemID: "A", Top: 0, Height: screen},
		{ItemID: "B", Top: screen + 100, Height: screen},
	}})
	want := []Transition{
		{ItemID: "A", Kind: Left, Reason: ReasonDisplaced},
		{ItemID: "B", Kind: Entered, Reason: ReasonGeometry},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("displacement = %+v, want %+v", got, want)
	}

	// No flip-flop on the next identical frame.
	if got := tr.Observe(Frame{Viewport: Span{Top: 400, Height: screen}, Items: []Bounds{
		{ItemID: "A", Top: 0, Height: screen},
		{ItemID: "B", Top: screen + 100, Height: screen},
	}}); len(got) != 0 {
		t.Errorf("identical frame emitted %+v", got)
	}
}

func TestTracker_PromoteWhenActiveLeaves(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.1, LookaheadMargin: 1})
	items := func() []Bounds {
		return []Bounds{
			{ItemID: "A", Top: 0, Height: screen},
			{ItemID: "B", Top: screen + 100, Height: screen},
		}
	}

	tr.Observe(Frame{Viewport: Span{Top: 0, Height: screen}, Items: items()})
	tr.Observe(Frame{Viewport: Span{Top: 400, Height: screen}, Items: items()})

	// B scrolls out below while A is still visible: A is promoted back.
	bGone := []Bounds{{ItemID: "A", Top: 0, Height: screen}}
	got := tr.Observe(Frame{Viewport: Span{Top: 0, Height: screen}, Items: bGone})
	want := []Transition{
		{ItemID: "B", Kind: Left, Reason: ReasonGeometry},
		{ItemID: "A", Kind: Entered, Reason: ReasonPromoted},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("promotion = %+v, want %+v", got, want)
	}
}

func TestTracker_Force(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{})
	tr.Observe(feedFrame(0, "A", "B"))

	got := tr.Force("C")
	want := []Transition{
		{ItemID: "A", Kind: Left, Reason: ReasonDisplaced},
		{ItemID: "C", Kind: Entered, Reason: ReasonForced},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Force() = %+v, want %+v", got, want)
	}
	if got := tr.Force("C"); got != nil {
		t.Errorf("Force(active) = %+v, want nil", got)
	}
}

func TestTracker_ForgetAndReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{})
	tr.Observe(feedFrame(0, "A"))

	if got := tr.Forget("missing"); got != nil {
		t.Errorf("Forget(missing) = %+v", got)
	}
	got := tr.Forget("A")
	want := []Transition{{ItemID: "A", Kind: Left, Reason: ReasonForgotten}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Forget() = %+v, want %+v", got, want)
	}

	tr.Observe(feedFrame(0, "B"))
	got = tr.Reset()
	want = []Transition{{ItemID: "B", Kind: Left, Reason: ReasonForgotten}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reset() = %+v, want %+v", got, want)
	}
	if len(tr.Visible()) != 0 || tr.Active() != "" {
		t.Error("Reset() left state behind")
	}
}

func TestTracker_VisibleOrder(t *testing.T) {
	t.Parallel()

	tr := NewTracker(Config{Threshold: 0.1, LookaheadMargin: 1})
	tr.Observe(Frame{Viewport: Span{Top: 0, Height: screen}, Items: []Bounds{{ItemID: "A", Top: 0, Height: screen}}})
	tr.Observe(Frame{Viewport: Span{Top: 400, Height: screen}, Items: []Bounds{
		{ItemID: "A", Top: 0, Height: screen},
		{ItemID: "B", Top: screen, Height: screen},
	}})

	if got := tr.Visible(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Visible() = %v, want [A B]", got)
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	if Entered.String() != "entered" || Left.String() != "left" || Kind(0).String() != "unknown" {
		t.Error("unexpected Kind strings")
	}
}
