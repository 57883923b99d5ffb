/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package harness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/agents/evals/testevals"
	"github.com/arnavk-polka/gavin-ai/agents/executor/provider"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/stretchr/testify/require"
)

// llmServer answers chat completions by structured output schema name.
func llmServer(t *testing.T, replies map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat struct {
				JSONSchema struct {
					Name string `json:"name"`
				} `json:"json_schema"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply, ok := replies[req.ResponseFormat.JSONSchema.Name]
		if !ok {
			http.Error(w, "unexpected schema "+req.ResponseFormat.JSONSchema.Name, http.StatusBadRequest)
			return
		}
		content, _ := json.Marshal(reply)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "local",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": string(content)},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func botServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Polkadot connects parachains through the relay chain"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(llm, bot *httptest.Server) Config {
	return Config{
		Provider: provider.Config{
			OpenAIBaseURL:   llm.URL + "/",
			ExtractionModel: "local",
			JudgeModel:      "local",
		},
		BotURL:          bot.URL,
		BotHandle:       "gavinwood",
		UseRubric:       true,
		UseSemantic:     true,
		SemanticBackend: BackendLexical,
		QuestionDelay:   -1,
		EvaluationDelay: -1,
	}
}

func TestEndToEnd(t *testing.T) {
	llm := llmServer(t, map[string]any{
		"qa_pairs": map[string]any{"qa_pairs": []map[string]string{
			{"question": "How does Polkadot connect chains?", "answer": "Polkadot connects parachains through the relay chain"},
			{"question": "What is XCM?", "answer": "A cross consensus message format"},
		}},
		"rubric_evaluation": map[string]any{
			"overall_score":    0.8,
			"dimension_scores": map[string]float64{"relevance": 0.9, "accuracy": 0.7, "clarity": 0.8, "depth": 0.6, "helpfulness": 0.8},
			"reasoning":        "accurate",
			"strengths":        []string{"accurate"},
			"weaknesses":       []string{"brief"},
			"confidence":       0.9,
		},
	})
	collector := evals.NewResultCollector(testevals.New(t))
	h, err := New(context.Background(), testConfig(llm, botServer(t)), Observers{Evaluations: collector})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	started, err := h.Orchestrator.StartStressTest(context.Background(), "transcript", "")
	require.NoError(t, err)
	snap, err := h.Orchestrator.Wait(context.Background(), started.SessionID)
	require.NoError(t, err)
	require.Equal(t, analyze.StatusCompleted, snap.Status, snap.Error)
	require.Len(t, snap.EvaluatedResults, 2)

	exact := snap.EvaluatedResults[0].Evaluation
	require.Equal(t, analyze.MethodRubricWithSemantic, exact.Method)
	require.NotNil(t, exact.Semantic)
	require.InDelta(t, 1.0, exact.Semantic.Raw, 1e-9)
	require.InDelta(t, 0.7*0.8+0.3*1.0, exact.OverallScore, 1e-6)
	require.InDelta(t, 0.8, *exact.RubricOverallScore, 1e-9)

	require.Equal(t, 2, snap.Metrics.SuccessfulResponses)
	require.Equal(t, []string{"accurate"}, snap.Metrics.CommonStrengths)
	require.Equal(t, int64(2), collector.Total())
}

func TestNewValidation(t *testing.T) {
	llm := llmServer(t, nil)
	bot := botServer(t)

	cfg := testConfig(llm, bot)
	cfg.BotURL = ""
	_, err := New(context.Background(), cfg, Observers{})
	require.ErrorContains(t, err, "BOT_URL")

	cfg = testConfig(llm, bot)
	cfg.SemanticBackend = "bleurt"
	_, err = New(context.Background(), cfg, Observers{})
	require.ErrorContains(t, err, "unknown semantic backend")

	cfg = testConfig(llm, bot)
	cfg.UseSemantic = false
	cfg.SemanticBackend = "ignored"
	h, err := New(context.Background(), cfg, Observers{})
	require.NoError(t, err)
	require.Nil(t, h.Archive)
	require.NoError(t, h.Close())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("BOT_URL", "http://bot.local/chat")
	t.Setenv("SEMANTIC_BACKEND", "lexical")
	t.Setenv("JUDGE_MODEL", "claude-sonnet-4")

	cfg, err := ConfigFromEnv(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://bot.local/chat", cfg.BotURL)
	require.Equal(t, "gavinwood", cfg.BotHandle)
	require.True(t, cfg.UseRubric)
	require.Equal(t, BackendLexical, cfg.SemanticBackend)
	require.Equal(t, "claude-sonnet-4", cfg.Provider.JudgeModel)
	require.Equal(t, "gpt-4o", cfg.Provider.ExtractionModel)
	require.Equal(t, "sessions", cfg.SnapshotPrefix)
}

func TestConversationJudge(t *testing.T) {
	llm := llmServer(t, map[string]any{
		"rubric_evaluation": map[string]any{
			"overall_score":    0.75,
			"dimension_scores": map[string]float64{"relevance": 0.8},
			"reasoning":        "fine",
			"confidence":       0.7,
		},
	})
	j, err := NewConversationJudge(context.Background(), testConfig(llm, botServer(t)))
	require.NoError(t, err)

	verdicts := j.EvaluateConversation(context.Background(), []analyze.Message{
		{Role: "user", Content: "What is a parachain?"},
		{Role: "assistant", Content: "A chain secured by the relay chain."},
		{Role: "user", Content: "And XCM?"},
		{Role: "assistant", Content: "The message format between them."},
	}, "Gavin Wood")
	require.Len(t, verdicts, 2)
	for _, v := range verdicts {
		require.Empty(t, v.Error)
		require.InDelta(t, 0.75, v.OverallScore, 1e-9)
	}
}
