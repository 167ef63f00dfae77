// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package preload

// entryHeap is a binary heap of entries with a parallel map for O(1) lookup
// by media id. Ordering is supplied by less; the root is the minimum.
//
// It is not safe for concurrent use; Manager serialises access.
type entryHeap struct {
	items []*Entry
	byID  map[string]*Entry
	less  func(a, b *Entry) bool
}

func newEntryHeap(less func(a, b *Entry) bool) *entryHeap {
	return &entryHeap{
		items: make([]*Entry, 0),
		byID:  make(map[string]*Entry),
		less:  less,
	}
}

// evictionOrder puts the eviction victim at the root: lowest priority first,
// ties broken by oldest insertion.
func evictionOrder(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.seq < b.seq
}

// admissionOrder puts the next request to admit at the root: highest
// priority first, ties broken by oldest request.
func admissionOrder(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

func (h *entryHeap) Len() int {
	return len(h.items)
}

func (h *entryHeap) Get(id string) *Entry {
	return h.byID[id]
}

func (h *entryHeap) Peek() *Entry {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

func (h *entryHeap) Push(e *Entry) {
	if existing, ok := h.byID[e.MediaID]; ok {
		h.removeAt(existing.index)
	}
	e.index = len(h.items)
	h.items = append(h.items, e)
	h.byID[e.MediaID] = e
	h.bubbleUp(e.index)
}

func (h *entryHeap) Pop() *Entry {
	if len(h.items) == 0 {
		return nil
	}
	return h.removeAt(0)
}

func (h *entryHeap) Remove(id string) *Entry {
	e, ok := h.byID[id]
	if !ok {
		return nil
	}
	return h.removeAt(e.index)
}

// Fix restores ordering after an entry's priority changed.
func (h *entryHeap) Fix(e *Entry) {
	if cur, ok := h.byID[e.MediaID]; ok && cur == e {
		h.fix(e.index)
	}
}

// All returns the entries in heap order (not sorted).
func (h *entryHeap) All() []*Entry {
	out := make([]*Entry, len(h.items))
	copy(out, h.items)
	return out
}

func (h *entryHeap) removeAt(i int) *Entry {
	n := len(h.items) - 1
	e := h.items[i]
	delete(h.byID, e.MediaID)

	if i == n {
		h.items = h.items[:n]
		e.index = -1
		return e
	}

	h.items[i] = h.items[n]
	h.items[i].index = i
	h.items = h.items[:n]
	h.fix(i)

	e.index = -1
	return e
}

func (h *entryHeap) fix(i int) {
	if h.bubbleUp(i) {
		return
	}
	h.bubbleDown(i)
}

func (h *entryHeap) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *entryHeap) bubbleDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *entryHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}
