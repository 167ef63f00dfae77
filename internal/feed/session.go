// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/identity"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/playback"
	"github.com/tomtom215/reelfeed/internal/preload"
	"github.com/tomtom215/reelfeed/internal/validation"
	"github.com/tomtom215/reelfeed/internal/viewport"
)

var (
	// ErrUnknownItem is returned for item ids the session never rendered.
	ErrUnknownItem = errors.New("unknown feed item")

	// ErrSessionClosed is returned by inputs after Close.
	ErrSessionClosed = errors.New("feed session closed")

	// ErrFeedUnavailable wraps content provider failures.
	ErrFeedUnavailable = errors.New("feed unavailable")
)

type entry struct {
	item  MediaItem
	key   identity.Key
	index int
}

// Session is one client's view of one feed surface. It owns a viewport
// tracker, a playback coordinator and a preload pool, and shares the
// engagement ledger with every other session.
type Session struct {
	id       string
	actor    string
	surface  Surface
	ownerID  string
	provider ContentProvider
	ledger   *engagement.Ledger
	resolver identity.Resolver
	sink     Sink
	prefetch int

	tracker *viewport.Tracker
	coord   *playback.Coordinator
	preload *preload.Manager
	remote  *remotePreparer

	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	onPlayback  func(sessionID string, t playback.Transition)

	// input serialises viewport input so tracker transitions reach the
	// coordinator in the order the tracker produced them.
	input sync.Mutex

	mu        sync.Mutex
	items     []*entry
	byID      map[string]*entry
	byKey     map[identity.Key][]string
	cursor    string
	exhausted bool
	loading   bool
	closed    bool
	bg        sync.WaitGroup
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Actor returns the actor the session reacts as.
func (s *Session) Actor() string { return s.actor }

// Surface returns the rendering surface.
func (s *Session) Surface() Surface { return s.surface }

// OwnerID returns the profile owner for profile sessions.
func (s *Session) OwnerID() string { return s.ownerID }

// Preload exposes the session's preload pool.
func (s *Session) Preload() *preload.Manager { return s.preload }

// LoadNextPage fetches and renders the next page. It returns the number of
// items added; zero with a nil error means the feed is exhausted or a fetch
// is already running.
func (s *Session) LoadNextPage(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	if s.exhausted || s.loading {
		s.mu.Unlock()
		return 0, nil
	}
	s.loading = true
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.provider.FetchFeedPage(ctx, cursor)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		metrics.FeedPages.WithLabelValues("error").Inc()
		logging.CtxWarn(ctx).Err(err).Str("session_id", s.id).Str("cursor", cursor).Msg("Feed page fetch failed")
		s.sink.Notice(Notice{Kind: NoticeFeedUnavailable, Message: "Could not load more media"})
		return 0, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	metrics.FeedPages.WithLabelValues("ok").Inc()

	s.cursor = page.NextCursor
	if page.NextCursor == "" {
		s.exhausted = true
	}

	added := make([]*entry, 0, len(page.Items))
	for _, it := range page.Items {
		if _, dup := s.byID[it.ID]; dup || it.ID == "" {
			continue
		}
		if verr := validation.ValidateStruct(&it); verr != nil {
			metrics.FeedItemsRejected.Inc()
			s.log.Warn().Str("item_id", it.ID).Str("reason", verr.Error()).Msg("Media item not rendered")
			continue
		}
		key, err := s.resolver.Resolve(it.ID, it.OwnerID, it.SourceURL)
		if err != nil {
			metrics.FeedItemsRejected.Inc()
			s.log.Warn().Err(err).Str("item_id", it.ID).Msg("Media item not rendered")
			continue
		}
		e := &entry{item: it, key: key, index: len(s.items)}
		s.ledger.Retain(key)
		s.items = append(s.items, e)
		s.byID[it.ID] = e
		s.byKey[key] = append(s.byKey[key], it.ID)
		added = append(added, e)
	}
	for range added {
		s.bg.Add(1)
	}
	s.mu.Unlock()

	for _, e := range added {
		if e.item.Kind.Playable() {
			s.coord.Register(e.item.ID, e.item.Kind, &remoteResource{
				itemID:    e.item.ID,
				sourceURL: e.item.SourceURL,
				sink:      s.sink,
			})
		} else {
			s.coord.Register(e.item.ID, e.item.Kind, nil)
		}
		s.render(e.item.ID)
		go s.seed(e)
	}

	s.rebalance()
	return len(added), nil
}

// seed loads the engagement baseline for one item in the background.
func (s *Session) seed(e *entry) {
	defer s.bg.Done()

	if err := s.ledger.Load(s.ctx, e.key, s.actor); err != nil {
		if s.ctx.Err() == nil {
			s.log.Warn().Err(err).Str("item_id", e.item.ID).Msg("Initial reaction counts unavailable")
		}
		return
	}
	s.render(e.item.ID)
}

// Observe feeds one layout frame from the client.
func (s *Session) Observe(frame viewport.Frame) error {
	s.input.Lock()
	defer s.input.Unlock()

	if s.isClosed() {
		return ErrSessionClosed
	}
	s.apply(s.tracker.Observe(frame))
	return nil
}

// Activate makes itemID the active item regardless of geometry.
func (s *Session) Activate(itemID string) error {
	s.input.Lock()
	defer s.input.Unlock()

	if _, err := s.lookup(itemID); err != nil {
		return err
	}
	s.apply(s.tracker.Force(itemID))
	return nil
}

// ToggleMute flips the global mute flag and returns the new value.
func (s *Session) ToggleMute() (bool, error) {
	if s.isClosed() {
		return false, ErrSessionClosed
	}
	muted := s.coord.ToggleMute()
	if active := s.coord.Active(); active != "" {
		s.render(active)
	}
	return muted, nil
}

// TogglePlayback flips the active item between playing and paused.
func (s *Session) TogglePlayback(itemID string) (playback.State, error) {
	if _, err := s.lookup(itemID); err != nil {
		return playback.Idle, err
	}
	return s.coord.Toggle(itemID), nil
}

// ToggleReaction reacts with r, or removes the reaction when the actor
// already reacted with r. Switching types replaces the previous reaction.
// The item's counts are loaded first if the background seed has not landed.
func (s *Session) ToggleReaction(ctx context.Context, itemID string, r engagement.Reaction) (engagement.Counts, error) {
	e, err := s.lookup(itemID)
	if err != nil {
		return engagement.Counts{}, err
	}
	if !s.ledger.Allowed(r) {
		return engagement.Counts{}, fmt.Errorf("%w: %q", engagement.ErrUnknownReaction, r)
	}

	// Held for the call so a concurrent Close cannot forget the key.
	s.ledger.Retain(e.key)
	defer s.ledger.Release(e.key)

	if err := s.ledger.Load(ctx, e.key, s.actor); err != nil {
		return engagement.Counts{}, err
	}

	notifier := engagement.NotifierFunc(func(_ identity.Key, err error) {
		s.sink.Notice(Notice{
			Kind:    NoticeEngagementSync,
			ItemID:  itemID,
			Message: "Your reaction could not be saved",
		})
		s.log.Debug().Err(err).Str("item_id", itemID).Msg("Reaction rolled back")
	})

	if cur, _ := s.ledger.HasReacted(e.key, s.actor); cur == r {
		return s.ledger.Unreact(ctx, e.key, s.actor, notifier)
	}
	return s.ledger.React(ctx, e.key, s.actor, r, notifier)
}

// Retry clears an errored item so it can be attempted again.
func (s *Session) Retry(itemID string) (bool, error) {
	if _, err := s.lookup(itemID); err != nil {
		return false, err
	}
	s.preload.Forget(itemID)
	ok := s.coord.Retry(itemID)
	s.rebalance()
	return ok, nil
}

// MediaStarted is reported by the client when an element starts playing.
func (s *Session) MediaStarted(itemID string) error {
	if _, err := s.lookup(itemID); err != nil {
		return err
	}
	s.coord.Started(itemID)
	return nil
}

// MediaFailed is reported by the client when an element fails to decode or
// load.
func (s *Session) MediaFailed(itemID, reason string) error {
	if _, err := s.lookup(itemID); err != nil {
		return err
	}
	if reason == "" {
		reason = "unknown media error"
	}
	s.coord.Failed(itemID, errors.New(reason))
	return nil
}

// PreloadDone is reported by the client when the preload request with the
// given attempt number finished. An empty reason means success. Reports for
// superseded attempts are dropped.
func (s *Session) PreloadDone(itemID string, attempt uint64, reason string) error {
	if _, err := s.lookup(itemID); err != nil {
		return err
	}
	var err error
	if reason != "" {
		err = errors.New(reason)
	}
	if !s.remote.resolve(itemID, attempt, err) {
		s.log.Debug().Str("item_id", itemID).Uint64("attempt", attempt).Msg("Stale preload report dropped")
	}
	return nil
}

// RenderState returns the current render state of one item.
func (s *Session) RenderState(itemID string) (RenderState, bool) {
	s.mu.Lock()
	e, ok := s.byID[itemID]
	s.mu.Unlock()
	if !ok {
		return RenderState{}, false
	}
	return s.stateOf(e), true
}

// Items returns the render state of every item in feed order.
func (s *Session) Items() []RenderState {
	s.mu.Lock()
	entries := append([]*entry(nil), s.items...)
	s.mu.Unlock()

	out := make([]RenderState, len(entries))
	for i, e := range entries {
		out[i] = s.stateOf(e)
	}
	return out
}

// Active returns the active item id.
func (s *Session) Active() string {
	return s.coord.Active()
}

// PlayingCount returns how many items are playing; never more than one.
func (s *Session) PlayingCount() int {
	return s.coord.PlayingCount()
}

// Settle waits for background work started so far (seeding, prefetches).
func (s *Session) Settle() {
	s.bg.Wait()
}

// Close stops playback, cancels preparation and detaches from the ledger.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.unsubscribe()
	s.input.Lock()
	s.apply(s.tracker.Reset())
	s.input.Unlock()
	s.preload.Close()
	s.bg.Wait()

	s.mu.Lock()
	entries := append([]*entry(nil), s.items...)
	s.mu.Unlock()
	for _, e := range entries {
		s.ledger.Release(e.key)
	}

	s.log.Debug().Msg("Feed session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) lookup(itemID string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	e, ok := s.byID[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	return e, nil
}

// apply forwards viewport transitions to the coordinator in order, then
// refreshes preload priorities and prefetches the next page when needed.
func (s *Session) apply(ts []viewport.Transition) {
	if len(ts) == 0 {
		return
	}
	for _, t := range ts {
		switch t.Kind {
		case viewport.Left:
			wasErrored := false
			if snap, ok := s.coord.Snapshot(t.ItemID); ok {
				wasErrored = snap.State == playback.Errored
			}
			s.coord.Leave(t.ItemID)
			if wasErrored {
				s.preload.Forget(t.ItemID)
			}
		case viewport.Entered:
			s.coord.Enter(t.ItemID)
		}
		// Playable items re-render through the coordinator observer.
		if snap, ok := s.coord.Snapshot(t.ItemID); !ok || !snap.Kind.Playable() {
			s.render(t.ItemID)
		}
	}
	if s.isClosed() {
		return
	}
	s.rebalance()
	s.maybePrefetch()
}

// Priority returns the preload priority of an item at distance d from the
// active item (positive ahead, negative behind).
func Priority(d int) int {
	if d < 0 {
		return max(0, 100+25*d) / 2
	}
	return max(0, 100-25*d)
}

func (s *Session) rebalance() {
	active := s.coord.Active()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	anchor := 0
	if e, ok := s.byID[active]; ok {
		anchor = e.index
	}
	var wants []preload.Want
	for _, e := range s.items {
		if !e.item.Kind.Playable() {
			continue
		}
		p := Priority(e.index - anchor)
		if p <= 0 {
			continue
		}
		wants = append(wants, preload.Want{MediaID: e.item.ID, SourceURL: e.item.SourceURL, Priority: p})
	}
	s.mu.Unlock()

	s.preload.Rebalance(wants)
}

func (s *Session) maybePrefetch() {
	active := s.coord.Active()

	s.mu.Lock()
	e, ok := s.byID[active]
	if !ok || s.closed || s.exhausted || s.loading || len(s.items)-1-e.index > s.prefetch {
		s.mu.Unlock()
		return
	}
	s.bg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.bg.Done()
		if _, err := s.LoadNextPage(s.ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.log.Debug().Err(err).Msg("Prefetch failed")
		}
	}()
}

func (s *Session) render(itemID string) {
	s.mu.Lock()
	e, ok := s.byID[itemID]
	closed := s.closed
	s.mu.Unlock()
	if !ok || closed {
		return
	}
	s.sink.Render(s.stateOf(e))
}

func (s *Session) stateOf(e *entry) RenderState {
	rs := RenderState{
		ItemID:         e.item.ID,
		Key:            e.key,
		Kind:           e.item.Kind,
		PlaybackState:  playback.Idle,
		IsMuted:        true,
		Readiness:      s.preload.Readiness(e.item.ID).String(),
		ReactionCounts: s.ledger.CountsFor(e.key),
	}
	if snap, ok := s.coord.Snapshot(e.item.ID); ok {
		rs.PlaybackState = snap.State
		rs.IsMuted = snap.Muted
		rs.ShowFallback = snap.ShowFallback
	}
	rs.IsActive = s.coord.Active() == e.item.ID
	if r, ok := s.ledger.HasReacted(e.key, s.actor); ok {
		rs.HasActorReacted = true
		rs.ActorReaction = r
	}
	return rs
}

// onLedgerChange re-renders every item of this session showing key.
func (s *Session) onLedgerChange(ch engagement.Change) {
	s.mu.Lock()
	ids := append([]string(nil), s.byKey[ch.Key]...)
	s.mu.Unlock()

	for _, id := range ids {
		s.render(id)
	}
}

func (s *Session) onTransition(t playback.Transition) {
	s.render(t.ItemID)
	if s.onPlayback != nil {
		s.onPlayback(s.id, t)
	}
}

// PreloadReady implements preload.Listener.
func (s *Session) PreloadReady(itemID string) {
	s.render(itemID)
}

// PreloadFailed implements preload.Listener.
func (s *Session) PreloadFailed(itemID string, err error) {
	s.log.Debug().Err(err).Str("item_id", itemID).Msg("Preload failed")
	s.render(itemID)
}
