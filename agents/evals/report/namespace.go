/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"bytes"
	"fmt"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
)

// ByNamespace summarizes every namespace with at least one evaluation.
// A namespace is below threshold when its mean grade or its pass rate is.
func ByNamespace(obs *evals.NamespacedObserver[*evals.ResultCollector], threshold float64) (string, bool) {
	var buf bytes.Buffer
	table := NewTable([]string{"Namespace", "Evaluations", "Failures", "Mean", "Pass rate", ""}, &buf)

	type detail struct {
		namespace string
		lines     []string
	}
	var details []detail
	below := false

	obs.Walk(func(name string, rc *evals.ResultCollector) {
		s := rc.Summarize(threshold)
		if s.Total == 0 {
			return
		}
		marker := ""
		if s.PassRate < threshold || (s.Graded > 0 && s.Mean < threshold) {
			marker = "BELOW"
			below = true
		}
		_ = table.Append([]string{
			name,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%d", s.Failures),
			fmt.Sprintf("%.3f", s.Mean),
			fmt.Sprintf("%.1f%%", s.PassRate*100),
			marker,
		})

		var lines []string
		for _, f := range rc.Failures() {
			lines = append(lines, "FAIL "+f)
		}
		for _, g := range rc.Grades() {
			if g.Score < threshold {
				lines = append(lines, fmt.Sprintf("%.2f %s", g.Score, g.Reasoning))
			}
		}
		if len(lines) > 0 {
			details = append(details, detail{namespace: name, lines: lines})
		}
	})
	_ = table.Render()

	for _, d := range details {
		fmt.Fprintf(&buf, "\n%s\n", d.namespace)
		for _, line := range d.lines {
			fmt.Fprintf(&buf, "  - %s\n", line)
		}
	}
	return buf.String(), below
}
