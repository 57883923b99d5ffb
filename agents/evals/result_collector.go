/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import "sync"

// Grade represents a grade with score and reasoning
type Grade struct {
	Score     float64
	Reasoning string
}

// Summary condenses what a ResultCollector has seen.
type Summary struct {
	Total    int64
	Graded   int
	Failures int
	Mean     float64
	// PassRate is the share of all observed evaluations graded at or above the threshold.
	PassRate float64
}

// ResultCollector wraps an Observer to collect failure messages and grades
type ResultCollector struct {
	inner    Observer
	failures []string
	grades   []Grade
	mu       sync.Mutex
}

// NewResultCollector creates a new ResultCollector that wraps the given Observer
func NewResultCollector(inner Observer) *ResultCollector {
	return &ResultCollector{inner: inner}
}

// Fail passes through to the inner observer and stores the failure message
func (r *ResultCollector) Fail(msg string) {
	r.inner.Fail(msg)

	r.mu.Lock()
	r.failures = append(r.failures, msg)
	r.mu.Unlock()
}

// Log passes through to the inner observer
func (r *ResultCollector) Log(msg string) {
	r.inner.Log(msg)
}

// Grade passes through to the inner observer and stores the grade
func (r *ResultCollector) Grade(score float64, reasoning string) {
	r.inner.Grade(score, reasoning)

	r.mu.Lock()
	r.grades = append(r.grades, Grade{Score: score, Reasoning: reasoning})
	r.mu.Unlock()
}

// Failures returns a copy of all collected failure messages
func (r *ResultCollector) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

// Grades returns a copy of all collected grades
func (r *ResultCollector) Grades() []Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Grade(nil), r.grades...)
}

// Increment passes through to the inner observer
func (r *ResultCollector) Increment() {
	r.inner.Increment()
}

// Total passes through to the inner observer
func (r *ResultCollector) Total() int64 {
	return r.inner.Total()
}

// Summarize computes the mean grade and pass rate against threshold.
func (r *ResultCollector) Summarize(threshold float64) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Total:    r.inner.Total(),
		Graded:   len(r.grades),
		Failures: len(r.failures),
	}
	var sum float64
	var passed int
	for _, g := range r.grades {
		sum += g.Score
		if g.Score >= threshold {
			passed++
		}
	}
	if s.Graded > 0 {
		s.Mean = sum / float64(s.Graded)
	}
	if s.Total > 0 {
		s.PassRate = float64(passed) / float64(s.Total)
	}
	return s
}
