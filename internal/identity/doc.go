// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package identity derives canonical media keys.
//
// The same physical asset is rendered in several places (the vertical feed,
// an owner's profile grid) and each place hands out its own transient item
// id, sometimes none at all. Engagement must aggregate per asset, so every
// rendering resolves its item to a Key computed from the owner id and a
// normalized source URL:
//
//	key, err := identity.Resolve(nil, item.OwnerID, item.SourceURL)
//	if errors.Is(err, identity.ErrInvalidMediaReference) {
//	    // do not render the item
//	}
//
// Normalization drops the query parameters that vary by rendering context
// (cache busters, resize hints, signed-URL tokens), so
// "https://cdn/x.mp4?cb=123" and "https://cdn/x.mp4" resolve to one key.
//
// The package holds no state and performs no I/O.
package identity
