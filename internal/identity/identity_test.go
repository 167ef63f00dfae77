// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package identity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResolve_CacheBustingIgnored(t *testing.T) {
	t.Parallel()

	base, err := Resolve("owner-1", "https://cdn.example.com/media/a.mp4")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	busted, err := Resolve("owner-1", "https://cdn.example.com/media/a.mp4?cb=123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if base != busted {
		t.Errorf("cache-busting changed key: %q vs %q", base, busted)
	}
}

func TestResolve_SameAssetAcrossContexts(t *testing.T) {
	t.Parallel()

	want := MustResolve("club-9", "https://cdn.example.com/u/9/clip.mp4")

	renderings := []struct {
		name  string
		rawID string
		url   string
	}{
		{"feed card", "feed_42", "https://cdn.example.com/u/9/clip.mp4?cb=171"},
		{"profile grid", "grid-3", "https://CDN.example.com:443/u/9/clip.mp4?w=320&h=480"},
		{"no raw id", "", "http://cdn.example.com/u/9/clip.mp4#t=3"},
		{"tracking", "x", "https://cdn.example.com/u/9/clip.mp4/?utm_source=share&utm_medium=app"},
		{"signed", "y", "https://cdn.example.com/u/9/clip.mp4?expires=1700000000&signature=abc"},
	}

	for _, tt := range renderings {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolver{}.Resolve(tt.rawID, "club-9", tt.url)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != want {
				t.Errorf("Resolve() = %q, want %q", got, want)
			}
		})
	}
}

func TestResolve_DistinctAssets(t *testing.T) {
	t.Parallel()

	a := MustResolve("owner-1", "https://cdn.example.com/a.mp4")

	tests := []struct {
		name  string
		owner string
		url   string
	}{
		{"different owner", "owner-2", "https://cdn.example.com/a.mp4"},
		{"different path", "owner-1", "https://cdn.example.com/b.mp4"},
		{"different host", "owner-1", "https://other.example.com/a.mp4"},
		{"meaningful param", "owner-1", "https://cdn.example.com/a.mp4?variant=hd"},
		{"non default port", "owner-1", "https://cdn.example.com:8443/a.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MustResolve(tt.owner, tt.url); got == a {
				t.Errorf("Resolve(%q, %q) collided with base key %q", tt.owner, tt.url, a)
			}
		})
	}
}

func TestResolve_ParamOrderIrrelevant(t *testing.T) {
	t.Parallel()

	k1 := MustResolve("o", "https://cdn.example.com/a.mp4?variant=hd&lang=de")
	k2 := MustResolve("o", "https://cdn.example.com/a.mp4?lang=de&variant=hd&cb=9")
	if k1 != k2 {
		t.Errorf("parameter order changed key: %q vs %q", k1, k2)
	}
}

func TestResolve_InvalidMediaReference(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "?cb=1", "https://cdn.example.com/%zz"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			t.Parallel()
			_, err := Resolve("owner", raw)
			if !errors.Is(err, ErrInvalidMediaReference) {
				t.Errorf("Resolve(%q) error = %v, want ErrInvalidMediaReference", raw, err)
			}
		})
	}
}

func TestResolver_TrustRawIDs(t *testing.T) {
	t.Parallel()

	r := Resolver{TrustRawIDs: true}

	k, err := r.Resolve("asset-77", "owner", "https://cdn.example.com/a.mp4")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if k != "id_asset-77" {
		t.Errorf("trusted key = %q, want id_asset-77", k)
	}

	// Falls back to hashing without a raw id.
	k, err = r.Resolve("", "owner", "https://cdn.example.com/a.mp4")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if k != MustResolve("owner", "https://cdn.example.com/a.mp4") {
		t.Errorf("fallback key = %q, want hashed key", k)
	}

	// Still rejects malformed input even with a trusted id.
	if _, err := r.Resolve("asset-77", "owner", ""); !errors.Is(err, ErrInvalidMediaReference) {
		t.Errorf("error = %v, want ErrInvalidMediaReference", err)
	}
}

func TestResolve_KeyShape(t *testing.T) {
	t.Parallel()

	k := MustResolve("owner", "/uploads/a.mp4")
	if !strings.HasPrefix(k.String(), "m1_") || len(k) != len("m1_")+16 {
		t.Errorf("unexpected key shape %q", k)
	}
	if k.IsZero() {
		t.Error("IsZero() = true for resolved key")
	}
}

func TestNormalizeSourceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://CDN.Example.com/a.mp4", "//cdn.example.com/a.mp4"},
		{"http://cdn.example.com:80/a.mp4", "//cdn.example.com/a.mp4"},
		{"https://cdn.example.com/dir/", "//cdn.example.com/dir"},
		{"/uploads/a.mp4?v=2", "/uploads/a.mp4"},
		{"https://cdn.example.com/a.mp4?b=2&a=1", "//cdn.example.com/a.mp4?a=1&b=2"},
		{"s3://bucket/key.mp4", "s3://bucket/key.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeSourceURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeSourceURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSourceURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve_NoCollisionsAcrossCorpus(t *testing.T) {
	t.Parallel()

	seen := make(map[Key]string, 20000)
	for owner := 0; owner < 100; owner++ {
		for media := 0; media < 200; media++ {
			url := fmt.Sprintf("https://cdn.example.com/u/%d/m/%d.mp4", owner, media)
			k := MustResolve(fmt.Sprintf("owner-%d", owner), url)
			if prev, ok := seen[k]; ok {
				t.Fatalf("collision between %q and %q", prev, url)
			}
			seen[k] = url
		}
	}
}
