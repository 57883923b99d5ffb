/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package semantic

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"
)

// vectors maps input text to the embedding the fake server returns.
var vectors = map[string][]float64{
	"ping":     {1, 0},
	"expected": {1, 0},
	"same":     {1, 0},
	"opposite": {-1, 0},
	"ortho":    {0, 1},
}

func embeddingsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i, in := range req.Input {
			data[i] = datum{Object: "embedding", Index: i, Embedding: vectors[in]}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIBackend(t *testing.T) {
	srv := embeddingsServer(t)
	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	s := New(NewOpenAI(client, openai.EmbeddingModelTextEmbedding3Small))

	got := s.ScoreBatch(context.Background(),
		[]string{"expected", "expected", "expected"},
		[]string{"same", "opposite", "ortho"})
	require.Len(t, got, 3)

	wantRaw := []float64{1, -1, 0}
	wantNorm := []float64{1, 0, 0.5}
	for i := range got {
		require.False(t, got[i].Failed, "score %d: %s", i, got[i].Error)
		require.InDelta(t, wantRaw[i], got[i].Raw, 1e-9)
		require.InDelta(t, wantNorm[i], got[i].Normalized, 1e-9)
	}
	require.Equal(t, "openai:text-embedding-3-small", got[0].Backend)
}

func TestOpenAIBackendLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("bad"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	s := New(NewOpenAI(client, "text-embedding-3-small"))
	got := s.Score(context.Background(), "expected", "same")
	require.True(t, got.Failed)
	require.Equal(t, -1.0, got.Raw)
}

func TestCosine(t *testing.T) {
	c, err := cosine([]float64{1, 1}, []float64{1, 0})
	require.NoError(t, err)
	require.InDelta(t, 1/math.Sqrt2, c, 1e-9)

	_, err = cosine([]float64{1}, []float64{1, 0})
	require.Error(t, err)
	_, err = cosine([]float64{0, 0}, []float64{1, 0})
	require.Error(t, err)
}
