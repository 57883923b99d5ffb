/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when a model's provider has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

// Clients builds SDK clients on first use and reuses them afterwards.
type Clients struct {
	cfg Config

	mu        sync.Mutex
	openai    *openai.Client
	anthropic *anthropic.Client
	genai     *genai.Client
}

// NewClients returns a client set for cfg. No network calls are made.
func NewClients(cfg Config) *Clients {
	return &Clients{cfg: cfg}
}

// Config returns the configuration the clients were built from.
func (c *Clients) Config() Config {
	return c.cfg
}

// OpenAI returns the OpenAI client. A base URL alone is enough for
// OpenAI-compatible servers that need no key.
func (c *Clients) OpenAI() (openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openai != nil {
		return *c.openai, nil
	}
	if c.cfg.OpenAIAPIKey == "" && c.cfg.OpenAIBaseURL == "" {
		return openai.Client{}, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrNotConfigured)
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(c.cfg.OpenAIAPIKey),
		openaioption.WithMaxRetries(0),
	}
	if c.cfg.OpenAIBaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(c.cfg.OpenAIBaseURL))
	}
	client := openai.NewClient(opts...)
	c.openai = &client
	return client, nil
}

// Anthropic returns the Anthropic client, direct when ANTHROPIC_API_KEY is set
// and through Vertex AI otherwise.
func (c *Clients) Anthropic(ctx context.Context) (anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anthropic != nil {
		return *c.anthropic, nil
	}

	var client anthropic.Client
	switch {
	case c.cfg.AnthropicAPIKey != "":
		client = anthropic.NewClient(
			anthropicoption.WithAPIKey(c.cfg.AnthropicAPIKey),
			anthropicoption.WithMaxRetries(0),
		)
	case c.cfg.GoogleProject != "":
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return anthropic.Client{}, fmt.Errorf("finding Google credentials for Vertex: %w", err)
		}
		client = anthropic.NewClient(
			vertex.WithCredentials(ctx, c.cfg.GoogleRegion, c.cfg.GoogleProject, creds),
			anthropicoption.WithMaxRetries(0),
		)
	default:
		return anthropic.Client{}, fmt.Errorf("anthropic: %w (set ANTHROPIC_API_KEY or GOOGLE_CLOUD_PROJECT)", ErrNotConfigured)
	}
	c.anthropic = &client
	return client, nil
}

// GenAI returns the Gemini client, using the Gemini API when GEMINI_API_KEY is
// set and Vertex AI otherwise.
func (c *Clients) GenAI(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genai != nil {
		return c.genai, nil
	}

	var cc *genai.ClientConfig
	switch {
	case c.cfg.GeminiAPIKey != "":
		cc = &genai.ClientConfig{APIKey: c.cfg.GeminiAPIKey, Backend: genai.BackendGeminiAPI}
	case c.cfg.GoogleProject != "":
		cc = &genai.ClientConfig{Project: c.cfg.GoogleProject, Location: c.cfg.GoogleRegion, Backend: genai.BackendVertexAI}
	default:
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT)", ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.genai = client
	return client, nil
}
