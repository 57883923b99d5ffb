/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/executor/retry"
	"github.com/arnavk-polka/gavin-ai/agents/metrics"
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
	"github.com/arnavk-polka/gavin-ai/agents/result"
	"github.com/arnavk-polka/gavin-ai/agents/schema"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// Interface defines the contract for Google AI executors
type Interface[Request promptbuilder.Bindable, Response any] interface {
	// Execute binds the request, calls Gemini once and decodes the JSON reply.
	Execute(ctx context.Context, request Request) (Response, error)
}

// executor is the private implementation of Interface
type executor[Request promptbuilder.Bindable, Response any] struct {
	client             *genai.Client
	prompt             *promptbuilder.Prompt
	model              string
	temperature        float32
	maxOutputTokens    int32
	systemInstructions *promptbuilder.Prompt
	responseSchema     map[string]any
	genaiMetrics       *metrics.GenAI
	retryConfig        retry.Config
}

// New creates a new Google AI executor with the given configuration
func New[Request promptbuilder.Bindable, Response any](
	client *genai.Client,
	prompt *promptbuilder.Prompt,
	options ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if prompt == nil {
		return nil, errors.New("prompt is required")
	}

	responseSchema, err := schema.ToMap(schema.ReflectType[Response]())
	if err != nil {
		return nil, fmt.Errorf("deriving response schema: %w", err)
	}

	exec := &executor[Request, Response]{
		client:          client,
		prompt:          prompt,
		model:           "gemini-2.5-flash",
		temperature:     0.1,
		maxOutputTokens: 2000,
		responseSchema:  responseSchema,
		genaiMetrics:    metrics.NewGenAI(metrics.MeterName),
		retryConfig:     retry.NoRetry(),
	}

	for _, opt := range options {
		if err := opt(exec); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return exec, nil
}

// Execute implements the Interface
func (e *executor[Request, Response]) Execute(ctx context.Context, request Request) (resp Response, err error) {
	log := clog.FromContext(ctx)

	boundPrompt, err := request.Bind(e.prompt)
	if err != nil {
		return resp, fmt.Errorf("failed to bind request to prompt: %w", err)
	}
	prompt, err := boundPrompt.Build()
	if err != nil {
		return resp, fmt.Errorf("failed to build prompt: %w", err)
	}

	var text string
	trace := agenttrace.StartTrace(ctx, e.model, prompt)
	defer func() {
		trace.Complete(text, err)
		e.genaiMetrics.RecordRequest(ctx, e.model, err)
	}()

	config := &genai.GenerateContentConfig{
		Temperature:        ptr(e.temperature),
		MaxOutputTokens:    e.maxOutputTokens,
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: e.responseSchema,
	}
	if e.systemInstructions != nil {
		systemPrompt, err := e.systemInstructions.Build()
		if err != nil {
			return resp, fmt.Errorf("building system prompt: %w", err)
		}
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	log.With("model", e.model).With("prompt_length", len(prompt)).Debug("Calling Gemini")

	response, err := retry.Do(ctx, e.retryConfig, "gemini_generate", isRetryableVertexError, func() (*genai.GenerateContentResponse, error) {
		return e.client.Models.GenerateContent(ctx, e.model, contents, config)
	})
	if err != nil {
		return resp, fmt.Errorf("failed to call Gemini: %w", err)
	}

	if um := response.UsageMetadata; um != nil {
		e.genaiMetrics.RecordTokens(ctx, e.model, int64(um.PromptTokenCount), int64(um.CandidatesTokenCount))
		trace.RecordTokenUsage(int64(um.PromptTokenCount), int64(um.CandidatesTokenCount))
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return resp, errors.New("no candidates in Gemini response")
	}
	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	text = sb.String()
	if strings.TrimSpace(text) == "" {
		return resp, errors.New("no text in Gemini response")
	}

	resp, err = result.Decode[Response](text)
	if err != nil {
		return resp, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}

func ptr[T any](v T) *T {
	return &v
}
