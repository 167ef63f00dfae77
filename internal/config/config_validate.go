// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules tags cannot
// express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validatePreload(); err != nil {
		return err
	}

	if err := c.validateEngagement(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validatePreload requires at least one sweep per idle timeout.
func (c *Config) validatePreload() error {
	if c.Preload.SweepInterval > c.Preload.IdleTimeout {
		return fmt.Errorf("PRELOAD_SWEEP_INTERVAL (%v) must not exceed PRELOAD_IDLE_TIMEOUT (%v)",
			c.Preload.SweepInterval, c.Preload.IdleTimeout)
	}
	return nil
}

// validateEngagement rejects duplicate reaction types.
func (c *Config) validateEngagement() error {
	seen := make(map[string]struct{}, len(c.Engagement.ReactionTypes))
	for _, r := range c.Engagement.ReactionTypes {
		if _, dup := seen[r]; dup {
			return fmt.Errorf("REACTION_TYPES contains %s more than once", r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// validateSecurity validates rate limit settings.
func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		logging.Warn().Msg("CORS_ORIGINS allows any origin in production")
	}
	return nil
}

// hasWildcardCORS reports whether any origin is allowed.
func (c *Config) hasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// validateLogging validates logging configuration.
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
