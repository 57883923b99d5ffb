/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package semantic

import (
	"context"
	"regexp"
	"strings"
)

var (
	nonAlphaNumRE = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Lexical is an offline backend scoring ROUGE-L F1 over lowercased word
// tokens. It needs no credentials and is deterministic.
type Lexical struct{}

var _ Backend = Lexical{}

// Name implements Backend.
func (Lexical) Name() string { return "lexical" }

// Range implements Backend.
func (Lexical) Range() Range { return Range{Min: 0, Max: 1} }

// Load implements Backend.
func (Lexical) Load(context.Context) (Model, error) { return lexicalModel{}, nil }

type lexicalModel struct{}

func (lexicalModel) Similarity(ctx context.Context, references, candidates []string) ([]float64, error) {
	out := make([]float64, len(references))
	for i := range references {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = rougeL(tokenize(references[i]), tokenize(candidates[i]))
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.Fields(nonAlphaNumRE.ReplaceAllString(strings.ToLower(text), " "))
}

// rougeL is the F1 of LCS-based precision and recall.
func rougeL(ref, cand []string) float64 {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	lcs := lcsLength(ref, cand)
	if lcs == 0 {
		return 0
	}
	precision := float64(lcs) / float64(len(cand))
	recall := float64(lcs) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

func lcsLength(ref, cand []string) int {
	prev := make([]int, len(cand)+1)
	curr := make([]int, len(cand)+1)
	for i := 1; i <= len(ref); i++ {
		curr[0] = 0
		for j := 1; j <= len(cand); j++ {
			if ref[i-1] == cand[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(cand)]
}
