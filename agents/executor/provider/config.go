/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"fmt"

	"github.com/arnavk-polka/gavin-ai/agents/executor/retry"
	"github.com/sethvargo/go-envconfig"
)

// Config selects and authenticates the model providers.
type Config struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`

	// Vertex AI is used for claude-* and gemini-* models when the matching API
	// key is unset.
	GoogleProject string `env:"GOOGLE_CLOUD_PROJECT"`
	GoogleRegion  string `env:"GOOGLE_CLOUD_REGION,default=us-east5"`

	ExtractionModel string `env:"EXTRACTION_MODEL,default=gpt-4o"`
	JudgeModel      string `env:"JUDGE_MODEL,default=gpt-4o"`
	EmbeddingModel  string `env:"EMBEDDING_MODEL,default=text-embedding-3-small"`

	MaxRetries int `env:"LLM_MAX_RETRIES,default=0"`
}

// ConfigFromEnv processes Config from the environment.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing provider config: %w", err)
	}
	return cfg, nil
}

// Retry returns the retry policy for model calls. Zero retries means one attempt.
func (c Config) Retry() retry.Config {
	if c.MaxRetries <= 0 {
		return retry.NoRetry()
	}
	return retry.WithMaxRetries(c.MaxRetries)
}
