/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider picks a model executor by model name and wires it to the
// configured SDK client.
package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/executor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/claudeexecutor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/googleexecutor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/openaiexecutor"
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
)

// Settings are the per-call generation parameters.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	// SchemaName names the structured output schema where the provider takes one.
	SchemaName string
	// System is optional.
	System *promptbuilder.Prompt
}

// New returns an executor for s.Model: claude-* goes to Anthropic, gemini-* to
// Gemini and everything else to OpenAI.
func New[Request promptbuilder.Bindable, Response any](
	ctx context.Context,
	clients *Clients,
	prompt *promptbuilder.Prompt,
	s Settings,
) (executor.Interface[Request, Response], error) {
	if s.Model == "" {
		return nil, errors.New("model is required")
	}
	retryCfg := clients.Config().Retry()

	switch {
	case strings.HasPrefix(s.Model, "claude-"):
		client, err := clients.Anthropic(ctx)
		if err != nil {
			return nil, err
		}
		opts := []claudeexecutor.Option[Request, Response]{
			claudeexecutor.WithModel[Request, Response](s.Model),
			claudeexecutor.WithTemperature[Request, Response](s.Temperature),
			claudeexecutor.WithRetryConfig[Request, Response](retryCfg),
			claudeexecutor.WithAttributeEnricher[Request, Response](agenttrace.Enrich),
		}
		if s.MaxTokens > 0 {
			opts = append(opts, claudeexecutor.WithMaxTokens[Request, Response](s.MaxTokens))
		}
		if s.System != nil {
			opts = append(opts, claudeexecutor.WithSystemInstructions[Request, Response](s.System))
		}
		return claudeexecutor.New(client, prompt, opts...)

	case strings.HasPrefix(s.Model, "gemini-"):
		client, err := clients.GenAI(ctx)
		if err != nil {
			return nil, err
		}
		opts := []googleexecutor.Option[Request, Response]{
			googleexecutor.WithModel[Request, Response](s.Model),
			googleexecutor.WithTemperature[Request, Response](float32(s.Temperature)),
			googleexecutor.WithRetryConfig[Request, Response](retryCfg),
			googleexecutor.WithAttributeEnricher[Request, Response](agenttrace.Enrich),
		}
		if s.MaxTokens > 0 {
			opts = append(opts, googleexecutor.WithMaxOutputTokens[Request, Response](int32(s.MaxTokens)))
		}
		if s.System != nil {
			opts = append(opts, googleexecutor.WithSystemInstructions[Request, Response](s.System))
		}
		return googleexecutor.New(client, prompt, opts...)

	default:
		client, err := clients.OpenAI()
		if err != nil {
			return nil, err
		}
		opts := []openaiexecutor.Option[Request, Response]{
			openaiexecutor.WithModel[Request, Response](s.Model),
			openaiexecutor.WithTemperature[Request, Response](s.Temperature),
			openaiexecutor.WithRetryConfig[Request, Response](retryCfg),
			openaiexecutor.WithAttributeEnricher[Request, Response](agenttrace.Enrich),
		}
		if s.MaxTokens > 0 {
			opts = append(opts, openaiexecutor.WithMaxTokens[Request, Response](s.MaxTokens))
		}
		if s.SchemaName != "" {
			opts = append(opts, openaiexecutor.WithSchemaName[Request, Response](s.SchemaName))
		}
		if s.System != nil {
			opts = append(opts, openaiexecutor.WithSystemInstructions[Request, Response](s.System))
		}
		return openaiexecutor.New(client, prompt, opts...)
	}
}
