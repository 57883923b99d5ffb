/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/executor/openaiexecutor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/retry"
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type question struct {
	Text string
}

func (q *question) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindXML("question", struct {
		XMLName struct{} `xml:"question"`
		Content string   `xml:",chardata"`
	}{Content: q.Text})
}

type verdict struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28},
	})
	return string(b)
}

func newClient(srv *httptest.Server) openai.Client {
	return openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestExecute(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"score": 0.9, "reasoning": "precise"}`)))
	}))
	defer srv.Close()

	system := promptbuilder.MustNewPrompt(`You grade answers.`)
	exec, err := openaiexecutor.New[*question, verdict](newClient(srv), promptbuilder.MustNewPrompt(`Q: {{question}}`),
		openaiexecutor.WithModel[*question, verdict]("gpt-4o-mini"),
		openaiexecutor.WithSystemInstructions[*question, verdict](system),
		openaiexecutor.WithSchemaName[*question, verdict]("verdict"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := exec.Execute(context.Background(), &question{Text: "what is NPoS?"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff(verdict{Score: 0.9, Reasoning: "precise"}, got); diff != "" {
		t.Errorf("verdict (-want +got):\n%s", diff)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model: got %v", gotBody["model"])
	}
	format, _ := gotBody["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format type: got %v", format["type"])
	}
	js, _ := format["json_schema"].(map[string]any)
	if js["name"] != "verdict" || js["strict"] != true {
		t.Errorf("json_schema: got %v", js)
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages: got %d, want 2", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role: got %v", first["role"])
	}
}

func TestExecuteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody(`{"score": 0.5, "reasoning": "ok"}`)))
	}))
	defer srv.Close()

	exec, err := openaiexecutor.New[*question, verdict](newClient(srv), promptbuilder.MustNewPrompt(`{{question}}`),
		openaiexecutor.WithRetryConfig[*question, verdict](retry.Config{
			MaxRetries:  3,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  5 * time.Millisecond,
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := exec.Execute(context.Background(), &question{Text: "q"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestExecuteBadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad schema","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	exec, err := openaiexecutor.New[*question, verdict](newClient(srv), promptbuilder.MustNewPrompt(`{{question}}`),
		openaiexecutor.WithRetryConfig[*question, verdict](retry.Config{MaxRetries: 3, BaseBackoff: time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := exec.Execute(context.Background(), &question{Text: "q"}); err == nil {
		t.Fatal("Execute: wanted error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
}

func TestOptionValidation(t *testing.T) {
	prompt := promptbuilder.MustNewPrompt(`{{question}}`)
	client := openai.NewClient(option.WithAPIKey("test"))
	tests := []struct {
		name string
		opt  openaiexecutor.Option[*question, verdict]
	}{
		{"model", openaiexecutor.WithModel[*question, verdict]("")},
		{"temperature", openaiexecutor.WithTemperature[*question, verdict](-1)},
		{"tokens", openaiexecutor.WithMaxTokens[*question, verdict](0)},
		{"schema name", openaiexecutor.WithSchemaName[*question, verdict]("")},
		{"retry", openaiexecutor.WithRetryConfig[*question, verdict](retry.Config{MaxRetries: -1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openaiexecutor.New[*question, verdict](client, prompt, tt.opt); err == nil {
				t.Error("New: wanted error")
			}
		})
	}
}
