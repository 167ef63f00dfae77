// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"sync"

	"github.com/tomtom215/reelfeed/internal/feed"
)

// DefaultMailboxLimit bounds queued commands and notices per polled session.
const DefaultMailboxLimit = 512

// Outbox is the output accumulated since the previous poll. Renders hold
// only the latest state of each item, in the order items first changed.
type Outbox struct {
	Renders  []feed.RenderState  `json:"renders"`
	Commands []feed.MediaCommand `json:"commands"`
	Notices  []feed.Notice       `json:"notices"`
	Dropped  int                 `json:"dropped,omitempty"`
}

// Mailbox is the feed.Sink of a session driven over plain HTTP. Output is
// buffered until the client drains it.
type Mailbox struct {
	limit int

	mu       sync.Mutex
	order    []string
	renders  map[string]feed.RenderState
	commands []feed.MediaCommand
	notices  []feed.Notice
	dropped  int
}

// NewMailbox creates a mailbox keeping at most limit commands and limit
// notices; older entries are dropped first.
func NewMailbox(limit int) *Mailbox {
	if limit <= 0 {
		limit = DefaultMailboxLimit
	}
	return &Mailbox{limit: limit, renders: make(map[string]feed.RenderState)}
}

// Render implements feed.Sink.
func (m *Mailbox) Render(state feed.RenderState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.renders[state.ItemID]; !ok {
		m.order = append(m.order, state.ItemID)
	}
	m.renders[state.ItemID] = state
}

// Command implements feed.Sink.
func (m *Mailbox) Command(cmd feed.MediaCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	if over := len(m.commands) - m.limit; over > 0 {
		m.commands = append(m.commands[:0:0], m.commands[over:]...)
		m.dropped += over
	}
}

// Notice implements feed.Sink.
func (m *Mailbox) Notice(n feed.Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	if over := len(m.notices) - m.limit; over > 0 {
		m.notices = append(m.notices[:0:0], m.notices[over:]...)
		m.dropped += over
	}
}

// Drain returns and clears everything buffered.
func (m *Mailbox) Drain() Outbox {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Outbox{
		Renders:  make([]feed.RenderState, 0, len(m.order)),
		Commands: m.commands,
		Notices:  m.notices,
		Dropped:  m.dropped,
	}
	for _, id := range m.order {
		out.Renders = append(out.Renders, m.renders[id])
	}
	if out.Commands == nil {
		out.Commands = []feed.MediaCommand{}
	}
	if out.Notices == nil {
		out.Notices = []feed.Notice{}
	}

	m.order = nil
	m.renders = make(map[string]feed.RenderState)
	m.commands = nil
	m.notices = nil
	m.dropped = 0
	return out
}
