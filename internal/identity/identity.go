// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package identity

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidMediaReference is returned when a media reference cannot be
// turned into a canonical key (empty or unparsable source URL).
var ErrInvalidMediaReference = errors.New("invalid media reference")

const (
	hashedPrefix  = "m1_"
	trustedPrefix = "id_"
)

// Key is the canonical media key. It is the only identifier the engagement
// ledger aggregates on.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool {
	return k == ""
}

// volatileParams are query parameters that differ between renderings of the
// same asset. They never take part in the key.
var volatileParams = map[string]struct{}{
	"cb": {}, "_": {}, "t": {}, "ts": {}, "v": {}, "cache": {}, "cachebust": {},
	"nocache": {}, "rnd": {}, "random": {},
	"w": {}, "h": {}, "width": {}, "height": {}, "size": {}, "quality": {},
	"q": {}, "fit": {}, "format": {}, "fm": {}, "dpr": {},
	"expires": {}, "signature": {}, "sig": {}, "token": {}, "auth": {},
}

// Resolver resolves media references to canonical keys.
//
// The zero value ignores raw ids entirely, which is what the feed uses.
// TrustRawIDs is only for callers whose raw ids are known to be globally
// stable (for example ids minted by the asset store itself).
type Resolver struct {
	TrustRawIDs bool
}

// Resolve returns the canonical key for one rendering of a media item.
// rawID may be empty.
func (r Resolver) Resolve(rawID, ownerID, sourceURL string) (Key, error) {
	normalized, err := NormalizeSourceURL(sourceURL)
	if err != nil {
		return "", err
	}
	if r.TrustRawIDs {
		if id := strings.TrimSpace(rawID); id != "" {
			return Key(trustedPrefix + id), nil
		}
	}
	return hashKey(ownerID, normalized), nil
}

// Resolve is the primary path: it hashes ownerID with the normalized source
// URL and does not look at any view-assigned id.
func Resolve(ownerID, sourceURL string) (Key, error) {
	return Resolver{}.Resolve("", ownerID, sourceURL)
}

// MustResolve is like Resolve but panics on malformed input.
// Intended for tests and static fixtures.
func MustResolve(ownerID, sourceURL string) Key {
	k, err := Resolve(ownerID, sourceURL)
	if err != nil {
		panic(err)
	}
	return k
}

func hashKey(ownerID, normalized string) Key {
	d := xxhash.New()
	_, _ = d.WriteString(ownerID)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(normalized)

	sum := strconv.FormatUint(d.Sum64(), 16)
	if pad := 16 - len(sum); pad > 0 {
		sum = strings.Repeat("0", pad) + sum
	}
	return Key(hashedPrefix + sum)
}

// NormalizeSourceURL returns the rendering-independent form of a source URL.
//
// http and https renderings of one asset normalize identically, host and
// scheme are case-folded, default ports and fragments are dropped, volatile
// query parameters are removed and the rest are sorted.
func NormalizeSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty source url", ErrInvalidMediaReference)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMediaReference, err)
	}
	if u.Host == "" && u.Path == "" && u.Opaque == "" {
		return "", fmt.Errorf("%w: no host or path in %q", ErrInvalidMediaReference, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	var b strings.Builder
	switch scheme {
	case "", "http", "https":
		// one asset, whichever transport the view used
	default:
		b.WriteString(scheme)
		b.WriteString(":")
	}
	if host != "" {
		b.WriteString("//")
		b.WriteString(host)
	}
	b.WriteString(path)

	if query := stableQuery(u.Query()); query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String(), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

func isVolatileParam(name string) bool {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	_, ok := volatileParams[name]
	return ok
}

// stableQuery drops volatile parameters and encodes the rest in a
// deterministic order (keys sorted, values sorted per key).
func stableQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if isVolatileParam(k) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
