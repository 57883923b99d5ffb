/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/openai/openai-go"
)

// OpenAI embeds both texts with an OpenAI embedding model and scores their
// cosine similarity, which lies in [-1,1].
type OpenAI struct {
	client openai.Client
	model  string
}

var _ Backend = (*OpenAI)(nil)

// NewOpenAI returns an embeddings backend for model, e.g. text-embedding-3-small.
func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// Name implements Backend.
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Range implements Backend.
func (o *OpenAI) Range() Range { return Range{Min: -1, Max: 1} }

// Load embeds a short test string so a bad key or model name surfaces at load time.
func (o *OpenAI) Load(ctx context.Context) (Model, error) {
	m := &embeddingModel{client: o.client, model: o.model}
	if _, err := m.embed(ctx, []string{"ping"}); err != nil {
		return nil, err
	}
	return m, nil
}

type embeddingModel struct {
	client openai.Client
	model  string
}

func (m *embeddingModel) embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := m.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(m.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (m *embeddingModel) Similarity(ctx context.Context, references, candidates []string) ([]float64, error) {
	texts := make([]string, 0, len(references)+len(candidates))
	texts = append(texts, references...)
	texts = append(texts, candidates...)
	vecs, err := m.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	n := len(references)
	out := make([]float64, n)
	for i := range n {
		c, err := cosine(vecs[i], vecs[n+i])
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, errors.New("embedding dimensions do not match")
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero-length embedding")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
