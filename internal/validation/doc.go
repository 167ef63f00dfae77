// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use and shared, so struct
// metadata is cached once per type.
//
// # Custom Tags
//
//   - reaction: an upper-case reaction type name (LIKE, FIRE, THUMBS_UP)
//   - ratio: a float in [0, 1], used for viewport thresholds
//
// # Usage
//
// Content provider items, websocket client messages, REST request bodies and
// the loaded configuration are all checked through ValidateStruct:
//
//	type reactRequest struct {
//	    ItemID   string `json:"item_id" validate:"required"`
//	    Reaction string `json:"reaction" validate:"required,reaction"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
