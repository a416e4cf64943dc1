// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a := GenerateCorrelationID()
	b := GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len(correlation id) = %d, want 8", len(a))
	}
	if a == b {
		t.Errorf("expected distinct ids, got %q twice", a)
	}
}

func TestCorrelationIDContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	if got := CorrelationIDFromContext(ctx); got != "corr-1" {
		t.Errorf("CorrelationIDFromContext = %q, want corr-1", got)
	}
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context should have no correlation id, got %q", got)
	}
	if got := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background())); got == "" {
		t.Error("ContextWithNewCorrelationID should set an id")
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRequestID(context.Background(), "req-9")
	if got := RequestIDFromContext(ctx); got != "req-9" {
		t.Errorf("RequestIDFromContext = %q, want req-9", got)
	}
}

func TestCtx(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "c1")
	ctx = ContextWithRequestID(ctx, "r1")

	Ctx(ctx).Warn().Msg("handshake rejected")

	output := buf.String()
	for _, want := range []string{`"correlation_id":"c1"`, `"request_id":"r1"`, "handshake rejected"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}
