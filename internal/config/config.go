// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Feed       FeedConfig       `koanf:"feed"`
	Viewport   ViewportConfig   `koanf:"viewport"`
	Preload    PreloadConfig    `koanf:"preload"`
	Content    ContentConfig    `koanf:"content"`
	Engagement EngagementConfig `koanf:"engagement"`
	Actor      ActorConfig      `koanf:"actor"`
	Security   SecurityConfig   `koanf:"security"`
	WebSocket  WebSocketConfig  `koanf:"websocket"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`

	// PollSessionTTL closes HTTP-polled sessions nobody touched for this long.
	PollSessionTTL time.Duration `koanf:"poll_session_ttl" validate:"min=10s"`
	MailboxLimit   int           `koanf:"mailbox_limit" validate:"min=16"`

	// EventBuffer is the per-subscriber buffer of the in-process event bus.
	EventBuffer int64 `koanf:"event_buffer" validate:"min=1"`
}

// FeedConfig holds session-level feed behaviour.
type FeedConfig struct {
	// PrefetchDistance is how many items before the end of the loaded list
	// the next page is requested.
	PrefetchDistance int `koanf:"prefetch_distance" validate:"min=1,max=50"`

	// StartMuted is the initial global mute preference of a session.
	StartMuted bool `koanf:"start_muted"`

	// TrustRawIDs makes provider item ids canonical when they are stable
	// across surfaces. Leave false unless the provider guarantees that.
	TrustRawIDs bool `koanf:"trust_raw_ids"`
}

// ViewportConfig holds visibility tracking settings.
type ViewportConfig struct {
	Threshold       float64 `koanf:"threshold" validate:"gt=0,ratio"`
	LookaheadMargin float64 `koanf:"lookahead_margin" validate:"min=0"`
}

// PreloadConfig holds preload pool settings.
type PreloadConfig struct {
	Capacity       int           `koanf:"capacity" validate:"min=1,max=32"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"min=1s"`
	SweepInterval  time.Duration `koanf:"sweep_interval" validate:"min=100ms"`
	PrepareTimeout time.Duration `koanf:"prepare_timeout" validate:"min=1s"`
}

// ContentConfig holds the content provider client settings. An empty URL
// selects the built-in demo catalog.
type ContentConfig struct {
	URL             string        `koanf:"url" validate:"omitempty,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=100ms"`
	RateLimit       float64       `koanf:"rate_limit" validate:"min=0"` // requests per second, 0 = unlimited
	Burst           int           `koanf:"burst" validate:"min=1"`
	CacheSize       int           `koanf:"cache_size" validate:"min=0"` // 0 disables the page cache
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"min=1s"`
}

// EngagementConfig holds the engagement service client and ledger settings.
// An empty URL selects the in-memory engagement service.
type EngagementConfig struct {
	URL             string        `koanf:"url" validate:"omitempty,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=100ms"`
	SubmitTimeout   time.Duration `koanf:"submit_timeout" validate:"min=100ms"`
	ReactionTypes   []string      `koanf:"reaction_types" validate:"min=1,dive,reaction"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"min=1s"`
}

// ActorConfig holds actor identification settings.
type ActorConfig struct {
	// TrustedHeader carries the authenticated user id set by the auth proxy.
	TrustedHeader string `koanf:"trusted_header" validate:"required"`

	// CookieName is the durable anonymous id cookie.
	CookieName   string        `koanf:"cookie_name" validate:"required"`
	CookieMaxAge time.Duration `koanf:"cookie_max_age" validate:"min=1h"`
	CookieSecure bool          `koanf:"cookie_secure"`

	// StorePath is the BadgerDB directory for issued anonymous ids. Empty
	// keeps the registry in memory.
	StorePath string `koanf:"store_path"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// WebSocketConfig holds session transport settings.
type WebSocketConfig struct {
	MaxMessageSize int64 `koanf:"max_message_size" validate:"min=512"`
	SendBuffer     int   `koanf:"send_buffer" validate:"min=16"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// UsesDemoCatalog reports whether the built-in content catalog is used.
func (c *Config) UsesDemoCatalog() bool {
	return c.Content.URL == ""
}

// UsesMemoryEngagement reports whether the in-memory engagement service is used.
func (c *Config) UsesMemoryEngagement() bool {
	return c.Engagement.URL == ""
}
