/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/harness"
	"github.com/arnavk-polka/gavin-ai/analyze/report"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseMessages(t *testing.T) {
	in := `
- role: User
  content: hi
- role: assistant
  content: |
    hello there
`
	got, err := parseMessages([]byte(in))
	require.NoError(t, err)
	want := []analyze.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello there\n"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseMessages (-want +got):\n%s", diff)
	}

	got, err = parseMessages([]byte(`[{"role":"user","content":"json works"}]`))
	require.NoError(t, err)
	require.Equal(t, []analyze.Message{{Role: "user", Content: "json works"}}, got)

	_, err = parseMessages([]byte("role: user"))
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	cfg := harness.Config{
		BotURL:          "http://env",
		UseRubric:       true,
		UseSemantic:     true,
		SemanticBackend: harness.BackendOpenAI,
		SnapshotBucket:  "bucket",
	}
	opts := &options{botURL: "http://flag", semanticBackend: harness.BackendLexical, noRubric: true, judgeModel: "gemini-2.5-pro", persona: "Gavin Wood"}
	opts.apply(&cfg)

	require.Equal(t, "http://flag", cfg.BotURL)
	require.Equal(t, harness.BackendLexical, cfg.SemanticBackend)
	require.False(t, cfg.UseRubric)
	require.True(t, cfg.UseSemantic)
	require.Equal(t, "gemini-2.5-pro", cfg.Provider.JudgeModel)
	require.Equal(t, "Gavin Wood", cfg.PersonaContext)
	require.Empty(t, cfg.SnapshotBucket)
}

func TestWrite(t *testing.T) {
	snap := &analyze.Snapshot{
		ID:      "abc",
		Name:    "Analysis_1_1",
		Kind:    analyze.KindStressTest,
		Status:  analyze.StatusCompleted,
		Metrics: &analyze.AggregateMetrics{TotalQuestions: 3, PassRate: 0.5},
	}

	var b bytes.Buffer
	require.NoError(t, write(&b, "yaml", snap))
	out := b.String()
	require.Contains(t, out, "session_id: abc")
	require.Contains(t, out, "total_questions: 3")

	b.Reset()
	require.NoError(t, write(&b, "json", snap))
	require.Contains(t, b.String(), `"session_name": "Analysis_1_1"`)

	b.Reset()
	require.NoError(t, write(&b, "text", snap))
	require.True(t, strings.HasPrefix(b.String(), "Session Analysis_1_1 (abc)"))

	require.Error(t, write(&b, "xml", snap))
}

func TestWriteConversation(t *testing.T) {
	verdicts := []*rubric.Verdict{{OverallScore: 0.8, Method: rubric.MethodMTBench}}
	conv := report.Conversation{Evaluations: verdicts, Metrics: rubric.Aggregate(verdicts)}

	var b bytes.Buffer
	require.NoError(t, write(&b, "json", conv))
	require.Contains(t, b.String(), `"total_evaluations": 1`)

	b.Reset()
	require.NoError(t, write(&b, "yaml", conv))
	require.Contains(t, b.String(), "evaluation_method: mt_bench")

	b.Reset()
	require.NoError(t, write(&b, "text", conv))
	require.True(t, strings.HasPrefix(b.String(), "Conversation: 1 assistant replies"))

	require.Error(t, write(&b, "text", 42))
}

func TestCommandArgs(t *testing.T) {
	for _, name := range []string{"stress-test", "content", "multi-turn", "conversation"} {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs([]string{name})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			require.Error(t, cmd.Execute())
		})
	}
}
