/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "gavin.ai.evaluation.agenttrace"

// Trace represents one model call from prompt to raw output.
type Trace struct {
	ID           string      `json:"id"`
	Model        string      `json:"model"`
	Eval         EvalContext `json:"eval"`
	InputPrompt  string      `json:"input_prompt"`
	Output       string      `json:"output,omitempty"`
	Error        error       `json:"error,omitempty"`
	InputTokens  int64       `json:"input_tokens"`
	OutputTokens int64       `json:"output_tokens"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time"`

	mu   sync.Mutex
	ctx  context.Context
	span oteltrace.Span
}

// StartTrace opens a span for a model call and returns the trace recording it.
func StartTrace(ctx context.Context, model, prompt string) *Trace {
	ec := GetEvalContext(ctx)

	opts := []oteltrace.SpanStartOption{
		oteltrace.WithAttributes(
			attribute.String("model", model),
			attribute.Int("prompt.length", len(prompt)),
		),
	}
	if ec.SessionID != "" {
		opts = append(opts, oteltrace.WithAttributes(attribute.String("session_id", ec.SessionID)))
	}
	if ec.Operation != "" {
		opts = append(opts, oteltrace.WithAttributes(attribute.String("operation", ec.Operation)))
	}
	if ec.QuestionIndex >= 0 {
		opts = append(opts, oteltrace.WithAttributes(attribute.Int("question_index", ec.QuestionIndex)))
	}

	tr := otel.Tracer(tracerName, oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "model.call", opts...)

	return &Trace{
		ID:          generateTraceID(),
		Model:       model,
		Eval:        ec,
		InputPrompt: prompt,
		StartTime:   time.Now(),
		ctx:         ctx,
		span:        span,
	}
}

// RecordTokenUsage records token usage on the trace and its span.
func (t *Trace) RecordTokenUsage(inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.InputTokens += inputTokens
	t.OutputTokens += outputTokens
	if t.span != nil {
		t.span.SetAttributes(
			attribute.Int64("tokens.input", t.InputTokens),
			attribute.Int64("tokens.output", t.OutputTokens),
			attribute.Int64("tokens.total", t.InputTokens+t.OutputTokens),
		)
	}
}

// Complete ends the span and logs the call outcome.
func (t *Trace) Complete(output string, err error) {
	t.mu.Lock()
	t.Output = output
	t.Error = err
	t.EndTime = time.Now()
	span := t.span
	t.mu.Unlock()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	log := clog.FromContext(t.ctx).With(
		"trace_id", t.ID,
		"model", t.Model,
		"operation", t.Eval.Operation,
		"duration_ms", t.Duration().Milliseconds(),
	)
	if err != nil {
		log.With("error", err.Error()).Warn("Model call failed")
		return
	}
	log.Debug("Model call completed", "trace", t.String())
}

// Duration returns the duration of the call so far.
func (t *Trace) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// String returns a structured, truncated representation of the trace.
func (t *Trace) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Model: %s\n", t.Model)
	if t.Eval.Operation != "" {
		fmt.Fprintf(&sb, "Operation: %s\n", t.Eval.Operation)
	}
	fmt.Fprintf(&sb, "Prompt: %q\n", truncate(t.InputPrompt, 200))
	fmt.Fprintf(&sb, "Tokens: %d in, %d out\n", t.InputTokens, t.OutputTokens)

	switch {
	case t.Error != nil:
		fmt.Fprintf(&sb, "Error: %v\n", t.Error)
	case t.Output != "":
		fmt.Fprintf(&sb, "Output: %s\n", truncate(t.Output, 500))
	default:
		sb.WriteString("Output: <empty>\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// generateTraceID returns an id of the form YYYYMMDD-HHMMSS-RRRRRRRR.
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
