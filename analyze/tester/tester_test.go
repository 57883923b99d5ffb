/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tester

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/arnavk-polka/gavin-ai/agents/executor"
	"github.com/arnavk-polka/gavin-ai/agents/result"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func transcriptExec(ext Extraction, err error, seen *string) executor.Interface[*TranscriptRequest, Extraction] {
	return executor.Func[*TranscriptRequest, Extraction](func(_ context.Context, req *TranscriptRequest) (Extraction, error) {
		if seen != nil {
			*seen = req.Text
		}
		return ext, err
	})
}

func contentExec(ext Extraction, err error) executor.Interface[*ContentRequest, Extraction] {
	return executor.Func[*ContentRequest, Extraction](func(context.Context, *ContentRequest) (Extraction, error) {
		return ext, err
	})
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"multibyte cut", "héllo wörld", 7, "héllo w"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Excerpt(tt.text, tt.n)
			if got != tt.want {
				t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Excerpt(%q, %d) is not valid UTF-8", tt.text, tt.n)
			}
		})
	}
}

func TestParseTranscript(t *testing.T) {
	var seen string
	ext := Extraction{Pairs: []analyze.QAPair{
		{Question: " What is XCM? ", Answer: " A message format. "},
		{Question: "  ", Answer: "orphan answer"},
		{Question: "Why Rust?", Answer: "Safety."},
	}}
	tr := New(transcriptExec(ext, nil, &seen), contentExec(Extraction{}, nil))

	long := strings.Repeat("ü", ExcerptRunes+100)
	got, err := tr.ParseTranscript(context.Background(), long)
	require.NoError(t, err)
	require.Equal(t, ExcerptRunes, utf8.RuneCountInString(seen))

	want := []analyze.QAPair{
		{Question: "What is XCM?", Answer: "A message format."},
		{Question: "Why Rust?", Answer: "Safety."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTranscript() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"What is XCM?", "Why Rust?"}, ExtractQuestions(got)); diff != "" {
		t.Errorf("ExtractQuestions() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTranscriptFailures(t *testing.T) {
	tr := New(transcriptExec(Extraction{}, nil, nil), contentExec(Extraction{}, nil))
	got, err := tr.ParseTranscript(context.Background(), "nothing here")
	require.ErrorIs(t, err, ErrNoQuestions)
	require.Empty(t, got)
	require.NotNil(t, got)

	tr = New(transcriptExec(Extraction{}, errors.New("unparseable"), nil), contentExec(Extraction{}, nil))
	got, err = tr.ParseTranscript(context.Background(), "text")
	require.ErrorContains(t, err, "unparseable")
	require.Empty(t, got)
}

func TestParseContentForAnalysis(t *testing.T) {
	ext := Extraction{Pairs: []analyze.QAPair{
		{Question: "How does BABE pick slot leaders?", Answer: "should be dropped"},
		{Question: "What does GRANDPA finalize?"},
	}}
	tr := New(transcriptExec(Extraction{}, nil, nil), contentExec(ext, nil))
	got, err := tr.ParseContentForAnalysis(context.Background(), "a blog post")
	require.NoError(t, err)
	for _, p := range got {
		require.Empty(t, p.Answer)
	}
	require.Len(t, got, 2)
}

func TestFireSequentially(t *testing.T) {
	questions := []string{"q0", "q1", "q2", "q3", "q4"}
	var order []string
	cb := func(_ context.Context, q string) (string, error) {
		order = append(order, q)
		switch q {
		case "q2":
			return "", errors.New("bot exploded")
		case "q3":
			panic("nil map")
		}
		return "answer to " + q, nil
	}

	tr := New(nil, nil, WithDelay(0))
	var seen int
	got := tr.FireSequentiallyFunc(context.Background(), questions, cb, func(analyze.TestResult) { seen++ })

	require.Equal(t, questions, order)
	require.Len(t, got, len(questions))
	require.Equal(t, len(questions), seen)

	for i, r := range got {
		require.Equal(t, i, r.QuestionIndex)
		require.Equal(t, questions[i], r.Question)
	}
	require.Equal(t, analyze.ResultError, got[2].Status)
	require.Nil(t, got[2].BotResponse)
	require.Equal(t, "bot exploded", got[2].Error)
	require.Equal(t, analyze.ResultError, got[3].Status)
	require.Contains(t, got[3].Error, "panicked")
	require.Equal(t, "answer to q4", *got[4].BotResponse)

	var ok int
	for _, r := range got {
		if r.Usable() {
			ok++
		}
	}
	require.Equal(t, 3, ok)
}

func TestFireSequentiallyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cb := func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "ok", nil
	}

	got := New(nil, nil).FireSequentially(ctx, []string{"a", "b", "c"}, cb)
	require.Equal(t, 1, calls)
	require.Len(t, got, 3)

	want := []analyze.TestResult{
		{QuestionIndex: 0, Question: "a", Status: analyze.ResultSuccess},
		{QuestionIndex: 1, Question: "b", Status: analyze.ResultError, Error: context.Canceled.Error()},
		{QuestionIndex: 2, Question: "c", Status: analyze.ResultError, Error: context.Canceled.Error()},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(analyze.TestResult{}, "Timestamp", "BotResponse")); diff != "" {
		t.Errorf("FireSequentially() mismatch (-want +got):\n%s", diff)
	}
}

func TestPromptsBind(t *testing.T) {
	p, err := (&TranscriptRequest{Text: "Host: hi & welcome"}).Bind(transcriptPrompt)
	require.NoError(t, err)
	s, err := p.Build()
	require.NoError(t, err)
	require.Contains(t, s, "<transcript>Host: hi &amp; welcome</transcript>")

	p, err = (&ContentRequest{Text: "post"}).Bind(contentPrompt)
	require.NoError(t, err)
	s, err = p.Build()
	require.NoError(t, err)
	require.Contains(t, s, "<content>post</content>")
}

func TestExtractionReplyShapes(t *testing.T) {
	want := []analyze.QAPair{
		{Question: "What is a parachain?", Answer: "A shard"},
		{Question: "What is XCM?", Answer: "Cross-consensus messaging"},
	}
	tests := []struct {
		name  string
		reply string
		want  []analyze.QAPair
	}{{
		name:  "wrapped object",
		reply: `{"qa_pairs": [{"question": "What is a parachain?", "answer": "A shard"}, {"question": "What is XCM?", "answer": "Cross-consensus messaging"}]}`,
		want:  want,
	}, {
		name: "bare array after prose",
		reply: "Here are the pairs:\n" +
			`[{"question": "What is a parachain?", "answer": "A shard"}, {"question": "What is XCM?", "answer": "Cross-consensus messaging"}]`,
		want: want,
	}, {
		name:  "fenced bare array",
		reply: "```json\n[{\"question\": \"What is a parachain?\", \"answer\": \"A shard\"}]\n```",
		want:  want[:1],
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := executor.Func[*TranscriptRequest, Extraction](func(context.Context, *TranscriptRequest) (Extraction, error) {
				return result.Decode[Extraction](tt.reply)
			})
			got, err := New(exec, contentExec(Extraction{}, nil)).ParseTranscript(context.Background(), "transcript")
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTranscript() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractionRejectsSinglePairObject(t *testing.T) {
	// A lone pair object is not an extraction; it must not decode to zero pairs.
	_, err := result.Decode[Extraction](`{"question": "What is a parachain?", "answer": "A shard"}`)
	require.ErrorIs(t, err, result.ErrNoJSON)
}
