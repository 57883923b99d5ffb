/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyze

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMostCommon(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		n     int
		want  []string
	}{{
		name:  "empty",
		items: nil,
		n:     5,
		want:  []string{},
	}, {
		name:  "frequency then lexical",
		items: []string{"b", "a", "c", "b", "a", "d", "", "e", "f"},
		n:     5,
		want:  []string{"a", "b", "c", "d", "e"},
	}, {
		name:  "single winner",
		items: []string{"clear", "accurate", "clear"},
		n:     1,
		want:  []string{"clear"},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, MostCommon(tt.items, tt.n)); diff != "" {
				t.Errorf("MostCommon() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreDistribution(t *testing.T) {
	var d ScoreDistribution
	for _, s := range []float64{0.95, 0.9, 0.89, 0.7, 0.69, 0.5, 0.49, 0} {
		d.Add(s)
	}
	want := ScoreDistribution{Excellent: 2, Good: 2, Fair: 2, Poor: 2}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("ScoreDistribution mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusParsing, StatusTestingResponses, StatusEvaluatingResponses, StatusCalculatingMetrics, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
	}
}
