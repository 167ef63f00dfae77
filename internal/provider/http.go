// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
)

// ErrUnavailable is returned while an upstream's circuit is open.
var ErrUnavailable = errors.New("upstream unavailable")

// maxErrorBodySize limits how much of an error response body is kept.
const maxErrorBodySize = 4 * 1024

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: upstream returned status %d: %s", e.Op, e.Code, e.Body)
}

// ClientConfig configures an upstream HTTP client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	Breaker BreakerConfig

	// HTTPClient overrides the default client, e.g. in tests.
	HTTPClient *http.Client
}

// client is the JSON-over-HTTP plumbing shared by the upstream clients.
type client struct {
	service string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

func newClient(service string, cfg ClientConfig) (*client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid %s base URL %q", service, logging.SanitizeURL(cfg.BaseURL))
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &client{
		service: service,
		baseURL: base.String(),
		http:    hc,
		limiter: limiter,
		breaker: newBreaker(service+"-api", cfg.Breaker),
	}, nil
}

// do performs one JSON request behind the rate limiter and circuit breaker.
// A nil out discards the response body.
func (c *client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest(c.service, op, time.Since(start))
	}()

	_, err := c.breaker.execute(func() (any, error) {
		return nil, c.roundTrip(ctx, op, method, path, query, body, out)
	})
	if err != nil {
		logging.CtxDebug(ctx).
			Err(err).
			Str("service", c.service).
			Str("op", op).
			Msg("Upstream request failed")
	}
	return err
}

func (c *client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}
