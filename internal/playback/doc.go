// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package playback implements the playback coordinator: the per-session state
machine that decides which media item holds the single playback slot.

# State Machine

	Idle ──Enter──▶ Preparing ──Started──▶ Playing ◀──Toggle──▶ Paused
	  ▲                 │                     │                    │
	  └──────Leave──────┴─────────────────────┴────────────────────┘
	                    │
	                 Failed ──▶ Errored ──Leave/Retry──▶ Idle

Leaving always pauses, mutes and rewinds the resource, so an item that
re-enters the viewport restarts from zero.

# Single Playback

Before an item is committed as Playing, every other Playing item is paused,
rewound and muted inside the same critical section. Start notifications that
arrive for an item that is no longer active are answered by stopping that
resource instead of committing it.

# Mute

The global mute flag is applied only to the active item. Newly activated
items inherit it; items that leave are always muted.

# Usage

	coord := playback.NewCoordinator(preloads,
		playback.WithObserver(func(t playback.Transition) {
			log.Printf("%s: %s -> %s", t.ItemID, t.From, t.To)
		}),
	)
	coord.Register("a", playback.KindVideo, elementA)
	coord.Enter("a")   // elementA.Load(prepared)
	coord.Started("a") // elementA reported playback
*/
package playback
