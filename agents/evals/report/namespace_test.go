/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"strings"
	"testing"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/agents/evals/report"
	"github.com/arnavk-polka/gavin-ai/agents/evals/testevals"
)

func newTree(t *testing.T) *evals.NamespacedObserver[*evals.ResultCollector] {
	return evals.NewNamespacedObserver(func(string) *evals.ResultCollector {
		return evals.NewResultCollector(testevals.New(t))
	})
}

func TestByNamespace(t *testing.T) {
	obs := newTree(t)
	good := obs.Child("stress_test").Child("rubric")
	evals.Record(good, 0.9, "strong", "")
	evals.Record(good, 0.8, "solid", "")

	weak := obs.Child("content_analysis").Child("legacy")
	evals.Record(weak, 0.4, "off topic", "")
	evals.Record(weak, 0, "", "Evaluation error: upstream 500")

	out, below := report.ByNamespace(obs, 0.7)
	if !below {
		t.Error("wanted below-threshold flag")
	}
	for _, want := range []string{
		"/stress_test/rubric",
		"/content_analysis/legacy",
		"0.850",
		"100.0%",
		"BELOW",
		"FAIL Evaluation error: upstream 500",
		"0.40 off topic",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "| /stress_test |") {
		t.Errorf("namespaces without evaluations should be skipped:\n%s", out)
	}
}

func TestByNamespaceAllPassing(t *testing.T) {
	obs := newTree(t)
	evals.Record(obs.Child("multi_turn"), 0.95, "on persona", "")

	out, below := report.ByNamespace(obs, 0.7)
	if below {
		t.Errorf("unexpected below-threshold flag:\n%s", out)
	}
}
