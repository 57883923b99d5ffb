/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, name, namespace string) *dto.Metric {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "namespace" && l.GetValue() == namespace {
					return m
				}
			}
		}
	}
	return nil
}

func TestMetricsObserver(t *testing.T) {
	const ns = "/test/metrics"
	obs := NewMetricsObserver(ns)

	obs.Increment()
	obs.Grade(0.85, "good result")
	obs.Increment()
	obs.Fail("rubric and legacy both failed")
	obs.Log("ignored")

	if got := obs.Total(); got != 2 {
		t.Errorf("Total: got %d, want 2", got)
	}

	if m := findMetric(t, "gavin_evaluations_total", ns); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("gavin_evaluations_total: got %v, want 2", m)
	}
	if m := findMetric(t, "gavin_evaluation_failures_total", ns); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("gavin_evaluation_failures_total: got %v, want 1", m)
	}
	if m := findMetric(t, "gavin_evaluation_grade", ns); m == nil || m.GetGauge().GetValue() != 0.85 {
		t.Errorf("gavin_evaluation_grade: got %v, want 0.85", m)
	}

	m := findMetric(t, "gavin_evaluation_score", ns)
	if m == nil {
		t.Fatal("gavin_evaluation_score not found")
	}
	h := m.GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("histogram count: got %d, want 1", h.GetSampleCount())
	}
	for _, b := range h.GetBucket() {
		// 0.85 lands in the 0.9 bucket and above.
		want := uint64(0)
		if b.GetUpperBound() >= 0.9 {
			want = 1
		}
		if b.GetCumulativeCount() != want {
			t.Errorf("bucket le=%v: got %d, want %d", b.GetUpperBound(), b.GetCumulativeCount(), want)
		}
	}
}
