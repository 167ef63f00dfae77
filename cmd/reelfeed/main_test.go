// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelfeed/internal/config"
)

func TestResolveVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ldflags string
		info    *debug.BuildInfo
		want    string
	}{
		{"ldflags wins", "v1.2.3", &debug.BuildInfo{Main: debug.Module{Version: "v0.0.0"}}, "v1.2.3"},
		{"build info fallback", "dev", &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, "v1.2.3"},
		{"devel build", "dev", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "dev"},
		{"no build info", "dev", nil, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveVersion(tt.ldflags, tt.info); got != tt.want {
				t.Errorf("resolveVersion(%q) = %q, want %q", tt.ldflags, got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--env-file", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "reelfeed version ") {
		t.Errorf("output = %q, want reelfeed version prefix", out.String())
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("loadEnvFile(missing) = %v, want nil", err)
	}
	if err := loadEnvFile(""); err != nil {
		t.Errorf("loadEnvFile(\"\") = %v, want nil", err)
	}

	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("REELFEED_TEST_FROM_FILE=file\nREELFEED_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REELFEED_TEST_PRESET", "env")
	t.Setenv("REELFEED_TEST_FROM_FILE", "")
	os.Unsetenv("REELFEED_TEST_FROM_FILE")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("REELFEED_TEST_FROM_FILE"); got != "file" {
		t.Errorf("REELFEED_TEST_FROM_FILE = %q, want file", got)
	}
	if got := os.Getenv("REELFEED_TEST_PRESET"); got != "env" {
		t.Errorf("REELFEED_TEST_PRESET = %q, want env (existing variables win)", got)
	}
}

func TestSimulateCommand(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"simulate", "--env-file", "", "--items", "8", "--scroll", "0,1,3,1", "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v\nstderr: %s", err, errOut.String())
	}

	type counts struct {
		Total int `json:"total"`
	}
	type line struct {
		Type    string  `json:"type"`
		ItemID  string  `json:"item_id"`
		To      string  `json:"to"`
		Active  string  `json:"active"`
		Playing *int    `json:"playing"`
		Counts  *counts `json:"counts"`
	}

	var steps []line
	var playingNow string
	var reaction *line
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		switch l.Type {
		case "transition":
			if l.To == "playing" {
				playingNow = l.ItemID
			}
		case "step":
			steps = append(steps, l)
			if l.Playing == nil || *l.Playing > 1 {
				t.Errorf("step %d playing = %v, want at most 1", len(steps)-1, l.Playing)
			}
		case "reaction":
			reaction = &l
		}
	}

	wantActive := []string{"feed-000", "feed-001", "feed-003", "feed-001"}
	if len(steps) != len(wantActive) {
		t.Fatalf("steps = %d, want %d", len(steps), len(wantActive))
	}
	for i, want := range wantActive {
		if steps[i].Active != want {
			t.Errorf("step %d active = %q, want %q", i, steps[i].Active, want)
		}
	}
	if playingNow != "feed-001" {
		t.Errorf("last item to start playing = %q, want feed-001", playingNow)
	}
	if reaction == nil || reaction.ItemID != "feed-001" || reaction.Counts == nil || reaction.Counts.Total != 1 {
		t.Errorf("reaction = %+v, want one LIKE on feed-001", reaction)
	}
}

func TestSimulateRejectsEmptyCatalog(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := simulate(t.Context(), &out, simulateOptions{items: 0}); err == nil {
		t.Error("simulate(items=0) = nil, want error")
	}
}

func TestNewAppBuiltinMode(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	if got, want := a.addr(), ":"+strconv.Itoa(cfg.Server.Port); !strings.HasSuffix(got, want) {
		t.Errorf("addr() = %q, want suffix %q", got, want)
	}
	if a.server.Handler == nil {
		t.Error("server handler = nil")
	}
	if _, err := a.tree(); err != nil {
		t.Errorf("tree() error = %v", err)
	}
}
