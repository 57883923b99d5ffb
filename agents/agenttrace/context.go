/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// EvalContext identifies the evaluation work a model call belongs to.
type EvalContext struct {
	SessionID     string `json:"session_id,omitempty"`
	SessionKind   string `json:"session_kind,omitempty"` // stress_test, content_analysis or multi_turn
	QuestionIndex int    `json:"question_index"`         // -1 when the call is not tied to one question
	Operation     string `json:"operation,omitempty"`    // extract, rubric, legacy, multi_turn
}

// EnrichAttributes appends the bounded fields of the context to baseAttrs.
// Session ids and question indices stay out of metrics; they are unbounded.
func (e EvalContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)
	if e.SessionKind != "" {
		attrs = append(attrs, attribute.String("session_kind", e.SessionKind))
	}
	if e.Operation != "" {
		attrs = append(attrs, attribute.String("operation", e.Operation))
	}
	return attrs
}

type contextKey struct{}

// WithEvalContext adds the evaluation context to ctx.
func WithEvalContext(ctx context.Context, ec EvalContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ec)
}

// WithOperation returns ctx with only the operation of its evaluation context replaced.
func WithOperation(ctx context.Context, operation string) context.Context {
	ec := GetEvalContext(ctx)
	ec.Operation = operation
	return WithEvalContext(ctx, ec)
}

// WithQuestion returns ctx with only the question index of its evaluation context replaced.
func WithQuestion(ctx context.Context, index int) context.Context {
	ec := GetEvalContext(ctx)
	ec.QuestionIndex = index
	return WithEvalContext(ctx, ec)
}

// GetEvalContext retrieves the evaluation context, or a context with QuestionIndex -1.
func GetEvalContext(ctx context.Context) EvalContext {
	if ec, ok := ctx.Value(contextKey{}).(EvalContext); ok {
		return ec
	}
	return EvalContext{QuestionIndex: -1}
}

// Enrich is a metrics.AttributeEnricher that reads the evaluation context from ctx.
func Enrich(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return GetEvalContext(ctx).EnrichAttributes(baseAttrs)
}
