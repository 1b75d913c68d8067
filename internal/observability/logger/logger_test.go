// Copyright 2026 The ContentHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// TestPurpose: Validates level parsing and that records below the level are dropped.
// Scope: Unit Test
// Security: N/A
// Expected: Unknown levels default to info; debug records are suppressed at info.
// Test Case ID: LOG-01
func TestNew_Level(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))

	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", ServiceName: "contenthub", Output: &buf})
	l.Debug("hidden")
	l.Info("shown", TenantID("t-1"), Error(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "t-1", rec["tenant_id"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "contenthub", rec["service"])
}

// TestPurpose: Validates that trace and span IDs are attached when the context carries a span.
// Scope: Unit Test
// Security: N/A
// Expected: trace_id and span_id appear in the JSON output.
// Test Case ID: LOG-02
func TestTraceContextHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.InfoContext(ctx, "traced")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, traceID.String(), rec["trace_id"])
	assert.Equal(t, spanID.String(), rec["span_id"])
}

// TestPurpose: Validates that the fanout handler delivers a record to every enabled handler.
// Scope: Unit Test
// Security: N/A
// Expected: Both buffers receive the record; a handler above the record level is skipped.
// Test Case ID: LOG-03
func TestFanoutHandler(t *testing.T) {
	var a, b, c bytes.Buffer
	h := NewFanoutHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
		slog.NewJSONHandler(&c, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	slog.New(h).With(Component("test")).Info("hello")

	assert.Contains(t, a.String(), `"component":"test"`)
	assert.Contains(t, b.String(), "component=test")
	assert.Empty(t, c.String())
}
