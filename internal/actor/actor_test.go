// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package actor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestResolver(t *testing.T) (*Resolver, *Registry) {
	t.Helper()
	reg, err := OpenRegistry("", time.Hour)
	if err != nil {
		t.Fatalf("OpenRegistry() error = %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return NewResolver(Config{}, reg), reg
}

func TestResolver_TrustedHeader(t *testing.T) {
	t.Parallel()
	res, reg := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", "  user-42 ")
	rec := httptest.NewRecorder()

	a, err := res.Resolve(rec, req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if a.ID != "user-42" || a.Kind != KindUser {
		t.Errorf("Resolve() = %+v, want user-42 user", a)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("authenticated actors must not get an anonymous cookie")
	}
	if n, _ := reg.Count(); n != 0 {
		t.Errorf("registry count = %d, want 0", n)
	}
}

func TestResolver_InvalidHeader(t *testing.T) {
	t.Parallel()
	res, _ := newTestResolver(t)

	for _, h := range []string{"two words", "anon-spoofed", strings.Repeat("x", 200), "tab\tid"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Actor-ID", h)
		if _, err := res.Resolve(httptest.NewRecorder(), req); err != ErrInvalidActor {
			t.Errorf("Resolve(header %q) error = %v, want ErrInvalidActor", h, err)
		}
	}
}

func TestResolver_AnonymousIssuedOnceAndReused(t *testing.T) {
	t.Parallel()
	res, reg := newTestResolver(t)

	rec := httptest.NewRecorder()
	first, err := res.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !first.Issued || first.Kind != KindAnonymous || !strings.HasPrefix(first.ID, anonIDPrefix) {
		t.Fatalf("Resolve() = %+v, want newly issued anonymous actor", first)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "rf_anon" || cookies[0].Value != first.ID {
		t.Fatalf("cookies = %+v, want rf_anon=%s", cookies, first.ID)
	}
	if !cookies[0].HttpOnly {
		t.Error("anonymous cookie should be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	second, err := res.Resolve(rec2, req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if second.ID != first.ID || second.Issued {
		t.Errorf("second Resolve() = %+v, want reuse of %s", second, first.ID)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("known anonymous actors should not get a new cookie")
	}

	regEntry, ok, err := reg.Get(first.ID)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, want registration", ok, err)
	}
	if regEntry.LastSeen.Before(regEntry.IssuedAt) {
		t.Errorf("LastSeen %v before IssuedAt %v", regEntry.LastSeen, regEntry.IssuedAt)
	}
	if n, _ := reg.Count(); n != 1 {
		t.Errorf("registry count = %d, want 1", n)
	}
}

func TestResolver_MalformedCookieReplaced(t *testing.T) {
	t.Parallel()
	res, _ := newTestResolver(t)

	for _, v := range []string{"garbage", "anon-not-a-uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "rf_anon", Value: v})
		a, err := res.Resolve(httptest.NewRecorder(), req)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !a.Issued || a.ID == v {
			t.Errorf("cookie %q: Resolve() = %+v, want a fresh id", v, a)
		}
	}
}

func TestResolver_AdoptsUnknownValidCookie(t *testing.T) {
	t.Parallel()
	res, reg := newTestResolver(t)

	id := "anon-1b4e28ba-2fa1-41d2-883f-0016d3cca427"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "rf_anon", Value: id})

	a, err := res.Resolve(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if a.ID != id || a.Issued {
		t.Errorf("Resolve() = %+v, want adopted %s", a, id)
	}
	if _, ok, _ := reg.Get(id); !ok {
		t.Error("adopted id should be registered")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	res, _ := newTestResolver(t)

	var seen Actor
	h := Middleware(res)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen.ID != "user-1" {
		t.Errorf("status = %d, actor = %+v, want 204 and user-1", rec.Code, seen)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("X-Actor-ID", "has space")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
