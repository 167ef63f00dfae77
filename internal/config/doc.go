// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package config provides centralized configuration management for Reelfeed.

Configuration is layered with Koanf v2:

 1. Defaults from defaultConfig()
 2. An optional YAML file (CONFIG_PATH, ./config.yaml or /etc/reelfeed/config.yaml)
 3. Environment variables, mapped explicitly by envTransformFunc

Struct tags are checked with the shared validator from internal/validation;
rules spanning several fields live in config_validate.go.

# Environment Variables

Server:
  - HTTP_PORT: Listen port (default: 3870)
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - ENVIRONMENT: development, staging or production

Feed and playback:
  - FEED_PREFETCH_DISTANCE: Items before the end that trigger the next page (default: 3)
  - FEED_START_MUTED: Initial mute preference (default: true)
  - VIEWPORT_THRESHOLD: Visible fraction that activates an item (default: 0.6)
  - VIEWPORT_MARGIN: Lookahead margin in pixels (default: 250)
  - PRELOAD_CAPACITY: Resident prepared media per session (default: 3)
  - PRELOAD_IDLE_TIMEOUT: Idle resident lifetime (default: 30s)

Upstreams:
  - CONTENT_URL: Content provider base URL (empty: built-in demo catalog)
  - ENGAGEMENT_URL: Engagement service base URL (empty: in-memory service)
  - REACTION_TYPES: Comma-separated enabled reactions (default: LIKE,LOVE,FIRE,WOW,CLAP)

Actors:
  - ACTOR_HEADER: Header carrying the authenticated user id (default: X-Actor-ID)
  - ANON_COOKIE_NAME: Anonymous id cookie (default: rf_anon)
  - ANON_STORE_PATH: BadgerDB directory for issued anonymous ids (empty: in memory)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)

# Example YAML

	server:
	  port: 3870
	preload:
	  capacity: 4
	  idle_timeout: 45s
	engagement:
	  url: https://engagement.internal
	  reaction_types: [LIKE, FIRE]
*/
package config
