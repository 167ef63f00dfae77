// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelfeed/config.yaml",
	"/etc/reelfeed/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3870,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
			PollSessionTTL:  5 * time.Minute,
			MailboxLimit:    512,
			EventBuffer:     1024,
		},
		Feed: FeedConfig{
			PrefetchDistance: 3,
			StartMuted:       true, // autoplay policies require muted starts
			TrustRawIDs:      false,
		},
		Viewport: ViewportConfig{
			Threshold:       0.6,
			LookaheadMargin: 250,
		},
		Preload: PreloadConfig{
			Capacity:       3,
			IdleTimeout:    30 * time.Second,
			SweepInterval:  5 * time.Second,
			PrepareTimeout: 20 * time.Second,
		},
		Content: ContentConfig{
			URL:             "", // empty = built-in demo catalog
			Timeout:         10 * time.Second,
			RateLimit:       20,
			Burst:           5,
			CacheSize:       256,
			CacheTTL:        30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Engagement: EngagementConfig{
			URL:             "", // empty = in-memory engagement service
			Timeout:         5 * time.Second,
			SubmitTimeout:   10 * time.Second,
			ReactionTypes:   []string{"LIKE", "LOVE", "FIRE", "WOW", "CLAP"},
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Actor: ActorConfig{
			TrustedHeader: "X-Actor-ID",
			CookieName:    "rf_anon",
			CookieMaxAge:  400 * 24 * time.Hour,
			CookieSecure:  false,
			StorePath:     "",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			SendBuffer:     256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// PRELOAD_CAPACITY -> preload.capacity
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"engagement.reaction_types",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak
// into configuration.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",
	"poll_session_ttl": "server.poll_session_ttl",
	"mailbox_limit":    "server.mailbox_limit",
	"event_buffer":     "server.event_buffer",

	// Feed
	"feed_prefetch_distance": "feed.prefetch_distance",
	"feed_start_muted":       "feed.start_muted",
	"feed_trust_raw_ids":     "feed.trust_raw_ids",

	// Viewport
	"viewport_threshold": "viewport.threshold",
	"viewport_margin":    "viewport.lookahead_margin",

	// Preload
	"preload_capacity":        "preload.capacity",
	"preload_idle_timeout":    "preload.idle_timeout",
	"preload_sweep_interval":  "preload.sweep_interval",
	"preload_prepare_timeout": "preload.prepare_timeout",

	// Content provider
	"content_url":              "content.url",
	"content_timeout":          "content.timeout",
	"content_rate_limit":       "content.rate_limit",
	"content_burst":            "content.burst",
	"content_cache_size":       "content.cache_size",
	"content_cache_ttl":        "content.cache_ttl",
	"content_breaker_failures": "content.breaker_failures",
	"content_breaker_timeout":  "content.breaker_timeout",

	// Engagement service
	"engagement_url":              "engagement.url",
	"engagement_timeout":          "engagement.timeout",
	"engagement_submit_timeout":   "engagement.submit_timeout",
	"reaction_types":              "engagement.reaction_types",
	"engagement_breaker_failures": "engagement.breaker_failures",
	"engagement_breaker_timeout":  "engagement.breaker_timeout",

	// Actor identification
	"actor_header":       "actor.trusted_header",
	"anon_cookie_name":   "actor.cookie_name",
	"anon_cookie_ttl":    "actor.cookie_max_age",
	"anon_cookie_secure": "actor.cookie_secure",
	"anon_store_path":    "actor.store_path",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// WebSocket
	"ws_max_message_size": "websocket.max_message_size",
	"ws_send_buffer":      "websocket.send_buffer",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - PRELOAD_CAPACITY -> preload.capacity
//   - VIEWPORT_MARGIN -> viewport.lookahead_margin
//   - REACTION_TYPES -> engagement.reaction_types
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller is responsible for synchronising access to any reloaded Config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
