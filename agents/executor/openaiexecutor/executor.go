/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// Interface is the public interface for OpenAI execution.
type Interface[Request promptbuilder.Bindable, Response any] interface {
	// Execute binds the request, calls the chat model once and decodes the JSON reply.
	Execute(ctx context.Context, request Request) (Response, error)
}

type executor[Request promptbuilder.Bindable, Response any] struct {
	client             openai.Client
	prompt             *promptbuilder.Prompt
	systemInstructions *promptbuilder.Prompt
	model              string
	temperature        float64
	maxTokens          int64
	schemaName         string
	responseSchema     map[string]any
	genaiMetrics       *metrics.GenAI
	retryConfig        retry.Config
}

// New creates an executor bound to prompt.
func New[Request promptbuilder.Bindable, Response any](
	client openai.Client,
	prompt *promptbuilder.Prompt,
	opts ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}

	responseSchema, err := schema.ToMap(schema.ReflectStrict[Response]())
	if err != nil {
		return nil, fmt.Errorf("deriving response schema: %w", err)
	}

	e := &executor[Request, Response]{
		client:         client,
		prompt:         prompt,
		model:          "gpt-4o",
		temperature:    0.1,
		maxTokens:      2000,
		schemaName:     "response",
		responseSchema: responseSchema,
		genaiMetrics:   metrics.NewGenAI(metrics.MeterName),
		retryConfig:    retry.NoRetry(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return e, nil
}

// Execute implements Interface.
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
	trace := agenttrace.StartTrace(ctx, e.model, prompt)
	defer func() {
		trace.Complete(text, err)
		e.genaiMetrics.RecordRequest(ctx, e.model, err)
	}()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if e.systemInstructions != nil {
		system, err := e.systemInstructions.Build()
		if err != nil {
			return response, fmt.Errorf("building system prompt: %w", err)
		}
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(e.model),
		Messages:            messages,
		Temperature:         openai.Float(e.temperature),
		MaxCompletionTokens: openai.Int(e.maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   e.schemaName,
					Schema: e.responseSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	log.With("model", e.model).With("prompt_length", len(prompt)).Debug("Calling OpenAI")

	completion, err := retry.Do(ctx, e.retryConfig, "openai_chat", isRetryableOpenAIError, func() (*openai.ChatCompletion, error) {
		return e.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return response, fmt.Errorf("failed to call OpenAI: %w", err)
	}

	if u := completion.Usage; u.PromptTokens > 0 || u.CompletionTokens > 0 {
		e.genaiMetrics.RecordTokens(ctx, e.model, u.PromptTokens, u.CompletionTokens)
		trace.RecordTokenUsage(u.PromptTokens, u.CompletionTokens)
	}

	if len(completion.Choices) == 0 {
		return response, errors.New("no choices in OpenAI response")
	}
	text = completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		if refusal := completion.Choices[0].Message.Refusal; refusal != "" {
			return response, fmt.Errorf("model refused: %s", refusal)
		}
		return response, errors.New("empty content in OpenAI response")
	}

	response, err = result.Decode[Response](text)
	if err != nil {
		return response, fmt.Errorf("failed to parse response: %w", err)
	}
	return response, nil
}
