/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders session snapshots as plain text tables.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	evalreport "github.com/arnavk-polka/gavin-ai/agents/evals/report"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
)

// excerptRunes bounds question and response cells.
const excerptRunes = 60

// Write renders snap to w. Per-item tables are only written when the
// snapshot carries them.
func Write(w io.Writer, snap *analyze.Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (%s)\n", snap.Name, snap.ID)
	fmt.Fprintf(&b, "Kind: %s  Status: %s", snap.Kind, snap.Status)
	if snap.EndTime != nil {
		fmt.Fprintf(&b, "  Duration: %.1fs", snap.DurationSeconds)
	}
	b.WriteString("\n")
	if snap.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", snap.Error)
	}
	b.WriteString("\n")

	if m := snap.Metrics; m != nil {
		if err := writeMetrics(&b, m); err != nil {
			return err
		}
	}
	if len(snap.EvaluatedResults) > 0 {
		if err := writeResults(&b, snap.EvaluatedResults); err != nil {
			return err
		}
	}
	if m := snap.MultiTurnMetrics; m != nil {
		if err := writeMultiTurnMetrics(&b, m); err != nil {
			return err
		}
	}
	if len(snap.Turns) > 0 {
		if err := writeTurns(&b, snap.Turns); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Conversation is a graded recorded conversation.
type Conversation struct {
	Evaluations []*rubric.Verdict `json:"evaluations"`
	Metrics     rubric.Metrics    `json:"metrics"`
}

// WriteConversation renders per-reply verdicts followed by their aggregate.
func WriteConversation(w io.Writer, c Conversation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation: %d assistant replies\n\n", len(c.Evaluations))

	t := evalreport.NewTable([]string{"Reply", "Overall", "Confidence", "Method", "Error"}, &b)
	for i, v := range c.Evaluations {
		if err := t.Append([]string{
			fmt.Sprintf("%d", i+1),
			score(v.OverallScore),
			score(v.Confidence),
			v.Method,
			excerpt(v.Error),
		}); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	b.WriteString("\n")

	m := c.Metrics
	t = evalreport.NewTable([]string{"Metric", "Value"}, &b)
	rows := [][]string{
		{"Evaluations", fmt.Sprintf("%d", m.TotalEvaluations)},
		{"Avg overall", score(m.AvgOverallScore)},
		{"Pass rate", fmt.Sprintf("%.1f%%", m.PassRate*100)},
		{"Distribution", fmt.Sprintf("excellent %d, good %d, fair %d, poor %d",
			m.ScoreDistribution.Excellent, m.ScoreDistribution.Good, m.ScoreDistribution.Fair, m.ScoreDistribution.Poor)},
	}
	for _, dim := range slices.Sorted(maps.Keys(m.DimensionAverages)) {
		rows = append(rows, []string{"Avg " + dim, score(m.DimensionAverages[dim])})
	}
	for _, r := range rows {
		if err := t.Append(r); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	list(&b, "Common strengths", m.CommonStrengths)
	list(&b, "Common weaknesses", m.CommonWeaknesses)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMetrics(b *strings.Builder, m *analyze.AggregateMetrics) error {
	t := evalreport.NewTable([]string{"Metric", "Value"}, b)
	rows := [][]string{
		{"Questions", fmt.Sprintf("%d", m.TotalQuestions)},
		{"Successful responses", fmt.Sprintf("%d", m.SuccessfulResponses)},
		{"Avg overall", score(m.AvgOverallScore)},
		{"Avg content similarity", score(m.AvgContentSimilarity)},
		{"Avg style fidelity", score(m.AvgStyleFidelity)},
		{"Pass rate", fmt.Sprintf("%.1f%%", m.PassRate*100)},
		{"Distribution", fmt.Sprintf("excellent %d, good %d, fair %d, poor %d",
			m.ScoreDistribution.Excellent, m.ScoreDistribution.Good, m.ScoreDistribution.Fair, m.ScoreDistribution.Poor)},
	}
	if m.SemanticCount > 0 {
		rows = append(rows, []string{"Avg semantic (raw)", fmt.Sprintf("%.3f over %d", m.AvgSemanticScore, m.SemanticCount)})
	}
	for _, dim := range slices.Sorted(maps.Keys(m.DimensionAverages)) {
		rows = append(rows, []string{"Avg " + dim, score(m.DimensionAverages[dim])})
	}
	for _, method := range slices.Sorted(maps.Keys(m.MethodCounts)) {
		rows = append(rows, []string{"Method " + string(method), fmt.Sprintf("%d", m.MethodCounts[method])})
	}
	for _, r := range rows {
		if err := t.Append(r); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	list(b, "Common strengths", m.CommonStrengths)
	list(b, "Common weaknesses", m.CommonWeaknesses)
	b.WriteString("\n")
	return nil
}

func writeResults(b *strings.Builder, rows []analyze.EvaluatedResult) error {
	t := evalreport.NewTable([]string{"#", "Question", "Response", "Overall", "Method", "Error"}, b)
	for _, r := range rows {
		resp := ""
		if r.BotResponse != nil {
			resp = *r.BotResponse
		}
		errMsg := r.Evaluation.Error
		if errMsg == "" {
			errMsg = r.Error
		}
		if err := t.Append([]string{
			fmt.Sprintf("%d", r.QuestionIndex+1),
			excerpt(r.Question),
			excerpt(resp),
			score(r.Evaluation.OverallScore),
			string(r.Evaluation.Method),
			excerpt(errMsg),
		}); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	b.WriteString("\n")
	return nil
}

func writeMultiTurnMetrics(b *strings.Builder, m *analyze.MultiTurnMetrics) error {
	t := evalreport.NewTable([]string{"Metric", "Value"}, b)
	for _, r := range [][]string{
		{"Responses", fmt.Sprintf("%d", m.TotalResponses)},
		{"Avg overall", score(m.AvgOverallScore)},
		{"Avg relevance", score(m.AvgRelevanceScore)},
		{"Avg consistency", score(m.AvgConsistencyScore)},
		{"Avg technical", score(m.AvgTechnicalScore)},
		{"Avg clarity", score(m.AvgClarityScore)},
		{"Avg persona", score(m.AvgPersonaScore)},
		{"Pass rate", fmt.Sprintf("%.1f%%", m.PassRate*100)},
	} {
		if err := t.Append(r); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	b.WriteString("\n")
	return nil
}

func writeTurns(b *strings.Builder, turns []analyze.TurnResult) error {
	t := evalreport.NewTable([]string{"Message", "User", "Response", "Overall", "Persona", "Error"}, b)
	for _, turn := range turns {
		resp := ""
		if turn.BotResponse != nil {
			resp = *turn.BotResponse
		}
		if err := t.Append([]string{
			fmt.Sprintf("%d", turn.MessageIndex),
			excerpt(turn.UserMessage),
			excerpt(resp),
			score(turn.Evaluation.OverallScore),
			score(turn.Evaluation.PersonaScore),
			excerpt(turn.Evaluation.Error),
		}); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}
	b.WriteString("\n")
	return nil
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(b, "  - %s\n", s)
	}
}

func score(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

// excerpt flattens s to one line of at most excerptRunes runes.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= excerptRunes {
		return s
	}
	return string(r[:excerptRunes-3]) + "..."
}
