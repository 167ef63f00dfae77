// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package feed

import (
	"context"
	"sync"
	"time"
)

// remoteResource drives a media element on the client through commands.
type remoteResource struct {
	itemID    string
	sourceURL string
	sink      Sink
}

func (r *remoteResource) Load(prepared bool) {
	r.sink.Command(MediaCommand{ItemID: r.itemID, Op: OpLoad, SourceURL: r.sourceURL, Prepared: prepared})
}

func (r *remoteResource) Play() {
	r.sink.Command(MediaCommand{ItemID: r.itemID, Op: OpPlay})
}

func (r *remoteResource) Pause() {
	r.sink.Command(MediaCommand{ItemID: r.itemID, Op: OpPause})
}

func (r *remoteResource) Seek(position time.Duration) {
	r.sink.Command(MediaCommand{ItemID: r.itemID, Op: OpSeek, Position: position.Seconds()})
}

func (r *remoteResource) SetMuted(muted bool) {
	r.sink.Command(MediaCommand{ItemID: r.itemID, Op: OpMute, Muted: muted})
}

// remotePreparer asks the client to buffer an item and waits for its report.
// Each request carries a fresh attempt number; reports for any other attempt
// of the item are stale.
type remotePreparer struct {
	sink Sink

	mu      sync.Mutex
	attempt uint64
	waiting map[string]pendingPreload
}

type pendingPreload struct {
	attempt uint64
	done    chan error
}

func newRemotePreparer(sink Sink) *remotePreparer {
	return &remotePreparer{sink: sink, waiting: make(map[string]pendingPreload)}
}

func (p *remotePreparer) Prepare(ctx context.Context, itemID, sourceURL string) error {
	p.mu.Lock()
	p.attempt++
	w := pendingPreload{attempt: p.attempt, done: make(chan error, 1)}
	p.waiting[itemID] = w
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.waiting[itemID].attempt == w.attempt {
			delete(p.waiting, itemID)
		}
		p.mu.Unlock()
	}()

	p.sink.Command(MediaCommand{ItemID: itemID, Op: OpPreload, SourceURL: sourceURL, Attempt: w.attempt})

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		p.sink.Command(MediaCommand{ItemID: itemID, Op: OpCancelPreload, Attempt: w.attempt})
		return ctx.Err()
	}
}

// resolve delivers the client's report for one attempt. It reports whether
// that attempt was waiting for it.
func (p *remotePreparer) resolve(itemID string, attempt uint64, err error) bool {
	p.mu.Lock()
	w, ok := p.waiting[itemID]
	if !ok || w.attempt != attempt {
		p.mu.Unlock()
		return false
	}
	delete(p.waiting, itemID)
	p.mu.Unlock()

	w.done <- err
	return true
}
