// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id := GenerateCorrelationID()
	if len(id) != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", len(id))
	}
	if id == GenerateCorrelationID() {
		t.Error("two correlation ids are equal")
	}
	if len(GenerateRequestID()) != 36 {
		t.Errorf("len(GenerateRequestID()) = %d, want 36", len(GenerateRequestID()))
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || ActorIDFromContext(ctx) != "" {
		t.Fatal("empty context carries ids")
	}

	ctx = ContextWithCorrelationID(ctx, "sess1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithActorID(ctx, "actor-0000-1111")

	if got := CorrelationIDFromContext(ctx); got != "sess1234" {
		t.Errorf("CorrelationIDFromContext = %q, want sess1234", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := ActorIDFromContext(ctx); got != "actor-0000-1111" {
		t.Errorf("ActorIDFromContext = %q, want actor-0000-1111", got)
	}

	if got := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background())); len(got) != 8 {
		t.Errorf("new correlation id = %q, want 8 chars", got)
	}
}

func TestCtx(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "sess1234")
	ctx = ContextWithActorID(ctx, "3f2a9c10-1b7e-4d2a-9a55-0c2f7d1e8b44")

	Ctx(ctx).Info().Msg("reaction applied")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"sess1234"`, `"actor_id":"3f2a...8b44"`, "reaction applied"} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %s, want %s", out, want)
		}
	}
	if strings.Contains(out, "1b7e-4d2a") {
		t.Errorf("output = %s, actor id not masked", out)
	}
}

func TestCtxShortcuts(t *testing.T) {
	prevLevel := GetLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))

	CtxDebug(ctx).Msg("d")
	CtxInfo(ctx).Msg("i")
	CtxWarn(ctx).Msg("w")
	CtxError(ctx).Msg("e")
	CtxErr(ctx, errors.New("boom")).Msg("x")

	out := buf.String()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !strings.Contains(out, `"level":"`+level+`"`) {
			t.Errorf("output missing level %s: %s", level, out)
		}
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("output missing error field: %s", out)
	}
}

func TestLoggerFromContext_NoLogger(t *testing.T) {
	t.Parallel()

	// Falls back to the global logger without panicking.
	l := LoggerFromContext(context.Background())
	_ = l.With()
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(prev) })

	l := WithComponent("preload")
	l.Info().Msg("x")

	if !strings.Contains(buf.String(), `"component":"preload"`) {
		t.Errorf("output = %s, want component field", buf.String())
	}
}
