// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package logging

import (
	"net/url"
	"strings"
)

// SanitizeActorID masks an actor id, keeping the first and last 4 characters.
// Example: "3f2a9c10-1b7e-4d2a-9a55-0c2f7d1e8b44" -> "3f2a...8b44"
func SanitizeActorID(actor string) string {
	if actor == "" {
		return ""
	}
	if len(actor) <= 8 {
		return "***"
	}
	return actor[:4] + "..." + actor[len(actor)-4:]
}

// SanitizeURL drops the query string and credentials from a media or
// upstream URL. Signed CDN links carry their signature in the query.
// Example: "https://cdn/x.mp4?sig=abc" -> "https://cdn/x.mp4"
func SanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return truncateString(raw, 64)
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return truncateString(u.String(), 200)
}

// SanitizeError truncates long error messages and hides ones that mention
// credentials.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"password", "secret", "token", "bearer", "authorization", "cookie"} {
		if strings.Contains(lowerErr, pattern) {
			return "upstream credential error"
		}
	}
	return truncateString(err, 200)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
