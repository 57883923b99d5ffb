/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyze

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := s.Coarse()
	c.InputText = s.InputText
	c.QAPairs = slices.Clone(s.QAPairs)
	c.Questions = slices.Clone(s.Questions)
	c.Messages = slices.Clone(s.Messages)

	if s.TestResults != nil {
		c.TestResults = make([]TestResult, len(s.TestResults))
		for i, r := range s.TestResults {
			c.TestResults[i] = r.clone()
		}
	}
	if s.EvaluatedResults != nil {
		c.EvaluatedResults = make([]EvaluatedResult, len(s.EvaluatedResults))
		for i, r := range s.EvaluatedResults {
			c.EvaluatedResults[i] = EvaluatedResult{
				TestResult:     r.TestResult.clone(),
				ExpectedAnswer: r.ExpectedAnswer,
				Evaluation:     r.Evaluation.Clone(),
			}
		}
	}
	if s.Turns != nil {
		c.Turns = make([]TurnResult, len(s.Turns))
		for i, t := range s.Turns {
			t.BotResponse = clonePtr(t.BotResponse)
			c.Turns[i] = t
		}
	}
	return c
}

// Coarse copies the session header, progress and metrics, leaving every
// per-item slice nil.
func (s *Snapshot) Coarse() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		ID:              s.ID,
		Kind:            s.Kind,
		Name:            s.Name,
		Status:          s.Status,
		StartTime:       s.StartTime,
		EndTime:         clonePtr(s.EndTime),
		DurationSeconds: s.DurationSeconds,
		Progress:        s.Progress,
		Error:           s.Error,
	}
	if s.Metrics != nil {
		m := s.Metrics.Clone()
		c.Metrics = &m
	}
	c.MultiTurnMetrics = clonePtr(s.MultiTurnMetrics)
	return c
}

// Clone returns a deep copy of m.
func (m AggregateMetrics) Clone() AggregateMetrics {
	m.DimensionAverages = maps.Clone(m.DimensionAverages)
	m.MethodCounts = maps.Clone(m.MethodCounts)
	m.CommonStrengths = slices.Clone(m.CommonStrengths)
	m.CommonWeaknesses = slices.Clone(m.CommonWeaknesses)
	return m
}

// Clone returns a deep copy of e.
func (e Evaluation) Clone() Evaluation {
	e.DimensionScores = maps.Clone(e.DimensionScores)
	e.Reasoning.Strengths = slices.Clone(e.Reasoning.Strengths)
	e.Reasoning.Weaknesses = slices.Clone(e.Reasoning.Weaknesses)
	e.Semantic = clonePtr(e.Semantic)
	e.RubricOverallScore = clonePtr(e.RubricOverallScore)
	return e
}

func (r TestResult) clone() TestResult {
	r.BotResponse = clonePtr(r.BotResponse)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
