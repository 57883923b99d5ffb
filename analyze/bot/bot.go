/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package bot is the HTTP client for the persona bot under test.
//
// Each request posts {"handle", "message", "history"} to the bot's chat
// endpoint. The bot may answer with a bare JSON string or an object with a
// "message" field.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arnavk-polka/gavin-ai/analyze"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultHandle is the persona handle sent with every message.
const DefaultHandle = "gavinwood"

// maxBody bounds how much of a reply is read.
const maxBody = 1 << 20

// Client talks to the bot's chat endpoint.
type Client struct {
	url    string
	handle string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHandle overrides DefaultHandle.
func WithHandle(handle string) Option {
	return func(c *Client) { c.handle = handle }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client posting to url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("bot URL is required")
	}
	c := &Client{
		url:    url,
		handle: DefaultHandle,
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	Handle  string            `json:"handle"`
	Message string            `json:"message"`
	History []analyze.Message `json:"history"`
}

// Send sends message with the conversation so far.
func (c *Client) Send(ctx context.Context, message string, history []analyze.Message) (string, error) {
	if history == nil {
		history = []analyze.Message{}
	}
	body, err := json.Marshal(request{Handle: c.handle, Message: message, History: history})
	if err != nil {
		return "", fmt.Errorf("marshaling bot request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating bot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling bot: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("reading bot response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("bot returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return ParseReply(raw)
}

// ParseReply extracts the reply text from a bare JSON string or an object
// with a "message" field.
func ParseReply(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errors.New("empty bot response")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding bot response: %w", err)
		}
		return s, nil
	case '{':
		var obj struct {
			Message *string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("decoding bot response: %w", err)
		}
		if obj.Message == nil {
			return "", errors.New(`bot response has no "message" field`)
		}
		return *obj.Message, nil
	default:
		return "", fmt.Errorf("unexpected bot response: %.80s", raw)
	}
}
