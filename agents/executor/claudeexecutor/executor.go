/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/executor/retry"
	"github.com/arnavk-polka/gavin-ai/agents/metrics"
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
	"github.com/arnavk-polka/gavin-ai/agents/result"
	"github.com/arnavk-polka/gavin-ai/agents/schema"
	"github.com/chainguard-dev/clog"
)

// Interface is the public interface for Claude execution
type Interface[Request promptbuilder.Bindable, Response any] interface {
	// Execute binds the request, calls Claude once and decodes the JSON reply.
	Execute(ctx context.Context, request Request) (Response, error)
}

type executor[Request promptbuilder.Bindable, Response any] struct {
	client             anthropic.Client
	modelName          string
	systemInstructions *promptbuilder.Prompt
	prompt             *promptbuilder.Prompt
	maxTokens          int64
	temperature        float64
	schemaText         string
	genaiMetrics       *metrics.GenAI
	retryConfig        retry.Config
}

// New creates a new Executor with minimal required configuration.
//
// Claude has no response schema parameter, so the JSON schema of Response is
// appended to the system prompt and the reply is decoded tolerantly.
func New[Request promptbuilder.Bindable, Response any](
	client anthropic.Client,
	prompt *promptbuilder.Prompt,
	opts ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}

	schemaMap, err := schema.ToMap(schema.ReflectStrict[Response]())
	if err != nil {
		return nil, fmt.Errorf("deriving response schema: %w", err)
	}
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshaling response schema: %w", err)
	}

	e := &executor[Request, Response]{
		client:       client,
		modelName:    "claude-sonnet-4-5",
		prompt:       prompt,
		maxTokens:    2000,
		temperature:  0.1,
		schemaText:   string(schemaJSON),
		genaiMetrics: metrics.NewGenAI(metrics.MeterName),
		retryConfig:  retry.NoRetry(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return e, nil
}

// Execute implements Interface
func (e *executor[Request, Response]) Execute(ctx context.Context, request Request) (response Response, err error) {
	log := clog.FromContext(ctx)

	boundPrompt, err := request.Bind(e.prompt)
	if err != nil {
		return response, fmt.Errorf("failed to bind request to prompt: %w", err)
	}
	prompt, err := boundPrompt.Build()
	if err != nil {
		return response, fmt.Errorf("failed to build prompt: %w", err)
	}

	var text string
	trace := agenttrace.StartTrace(ctx, e.modelName, prompt)
	defer func() {
		trace.Complete(text, err)
		e.genaiMetrics.RecordRequest(ctx, e.modelName, err)
	}()

	system := "Respond with a single JSON object that conforms to this JSON schema, and nothing else:\n" + e.schemaText
	if e.systemInstructions != nil {
		instructions, err := e.systemInstructions.Build()
		if err != nil {
			return response, fmt.Errorf("building system prompt: %w", err)
		}
		system = instructions + "\n\n" + system
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.modelName),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(prompt),
			},
		}},
		System:      []anthropic.TextBlockParam{{Text: system}},
		Temperature: anthropic.Float(e.temperature),
	}

	log.With("model", e.modelName).With("prompt_length", len(prompt)).Debug("Calling Claude")

	message, err := retry.Do(ctx, e.retryConfig, "claude_message", isRetryableClaudeError, func() (*anthropic.Message, error) {
		return e.client.Messages.New(ctx, params)
	})
	if err != nil {
		return response, fmt.Errorf("failed to call Claude: %w", err)
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		e.genaiMetrics.RecordTokens(ctx, e.modelName, message.Usage.InputTokens, message.Usage.OutputTokens)
		trace.RecordTokenUsage(message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	text = sb.String()
	if strings.TrimSpace(text) == "" {
		return response, errors.New("no content in Claude's response")
	}

	response, err = result.Decode[Response](text)
	if err != nil {
		return response, fmt.Errorf("failed to parse response: %w", err)
	}
	return response, nil
}
