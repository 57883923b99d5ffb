/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tester turns input text into questions and fires them at the bot
// under test, one at a time.
package tester

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/executor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/provider"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/chainguard-dev/clog"
)

// ErrNoQuestions is returned when extraction produced no usable question.
var ErrNoQuestions = errors.New("no questions extracted")

const (
	// ExcerptRunes bounds how much input text is sent for extraction.
	ExcerptRunes = 8000

	// DefaultDelay is the pause between questions fired at the bot.
	DefaultDelay = 500 * time.Millisecond
)

// Extraction is the structured output of both extraction prompts.
type Extraction struct {
	Pairs []analyze.QAPair `json:"qa_pairs"`
}

// UnmarshalJSON accepts the {"qa_pairs": [...]} object as well as a bare
// array of pairs, which providers that ignore the response schema return.
func (e *Extraction) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &e.Pairs)
	}
	type plain Extraction
	return json.Unmarshal(b, (*plain)(e))
}

// Callback asks the bot one question.
type Callback func(ctx context.Context, question string) (string, error)

// Tester extracts questions and fires them.
type Tester struct {
	transcript executor.Interface[*TranscriptRequest, Extraction]
	content    executor.Interface[*ContentRequest, Extraction]
	delay      time.Duration
}

// Option configures a Tester.
type Option func(*Tester)

// WithDelay sets the pause between fired questions. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(t *Tester) { t.delay = d }
}

// New returns a Tester using the given extraction executors.
func New(transcript executor.Interface[*TranscriptRequest, Extraction], content executor.Interface[*ContentRequest, Extraction], opts ...Option) *Tester {
	t := &Tester{transcript: transcript, content: content, delay: DefaultDelay}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromProvider builds both extraction executors for model.
func NewFromProvider(ctx context.Context, clients *provider.Clients, model string, opts ...Option) (*Tester, error) {
	transcript, err := provider.New[*TranscriptRequest, Extraction](ctx, clients, transcriptPrompt, provider.Settings{
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   2000,
		SchemaName:  "qa_pairs",
	})
	if err != nil {
		return nil, fmt.Errorf("creating transcript executor: %w", err)
	}
	content, err := provider.New[*ContentRequest, Extraction](ctx, clients, contentPrompt, provider.Settings{
		Model:       model,
		Temperature: 0.4,
		MaxTokens:   2000,
		SchemaName:  "qa_pairs",
	})
	if err != nil {
		return nil, fmt.Errorf("creating content executor: %w", err)
	}
	return New(transcript, content, opts...), nil
}

// Excerpt returns at most n runes of text.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// ParseTranscript extracts question/answer pairs from a transcript. On
// failure it returns an empty slice and an error; ErrNoQuestions when the
// model found nothing.
func (t *Tester) ParseTranscript(ctx context.Context, text string) ([]analyze.QAPair, error) {
	ctx = agenttrace.WithOperation(ctx, "extract_transcript")
	ext, err := t.transcript.Execute(ctx, &TranscriptRequest{Text: Excerpt(text, ExcerptRunes)})
	if err != nil {
		return []analyze.QAPair{}, fmt.Errorf("extracting QA pairs: %w", err)
	}
	pairs := cleanPairs(ext.Pairs, false)
	clog.FromContext(ctx).With("pairs", len(pairs)).Info("Extracted QA pairs from transcript")
	if len(pairs) == 0 {
		return pairs, ErrNoQuestions
	}
	return pairs, nil
}

// ParseContentForAnalysis generates technical questions about arbitrary
// content. Answers are always empty.
func (t *Tester) ParseContentForAnalysis(ctx context.Context, text string) ([]analyze.QAPair, error) {
	ctx = agenttrace.WithOperation(ctx, "extract_content")
	ext, err := t.content.Execute(ctx, &ContentRequest{Text: Excerpt(text, ExcerptRunes)})
	if err != nil {
		return []analyze.QAPair{}, fmt.Errorf("generating questions: %w", err)
	}
	pairs := cleanPairs(ext.Pairs, true)
	clog.FromContext(ctx).With("questions", len(pairs)).Info("Generated questions from content")
	if len(pairs) == 0 {
		return pairs, ErrNoQuestions
	}
	return pairs, nil
}

// cleanPairs trims pairs and drops those without a question, so question i
// of ExtractQuestions always belongs to pair i.
func cleanPairs(in []analyze.QAPair, dropAnswers bool) []analyze.QAPair {
	out := make([]analyze.QAPair, 0, len(in))
	for _, p := range in {
		q := strings.TrimSpace(p.Question)
		if q == "" {
			continue
		}
		a := strings.TrimSpace(p.Answer)
		if dropAnswers {
			a = ""
		}
		out = append(out, analyze.QAPair{Question: q, Answer: a})
	}
	return out
}

// ExtractQuestions returns the non-empty questions of pairs in order.
func ExtractQuestions(pairs []analyze.QAPair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if q := strings.TrimSpace(p.Question); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// FireSequentially asks each question in order and records one TestResult
// per question.
func (t *Tester) FireSequentially(ctx context.Context, questions []string, cb Callback) []analyze.TestResult {
	return t.FireSequentiallyFunc(ctx, questions, cb, nil)
}

// FireSequentiallyFunc is FireSequentially calling onResult after each
// question. A failing or panicking callback produces an error row and firing
// continues. Once ctx is done the remaining questions are recorded as errors.
func (t *Tester) FireSequentiallyFunc(ctx context.Context, questions []string, cb Callback, onResult func(analyze.TestResult)) []analyze.TestResult {
	log := clog.FromContext(ctx)
	out := make([]analyze.TestResult, 0, len(questions))
	for i, q := range questions {
		var r analyze.TestResult
		if err := t.wait(ctx, i); err != nil {
			r = errorResult(i, q, err)
		} else {
			log.With("question_index", i, "total", len(questions)).Info("Firing question")
			resp, err := call(ctx, cb, q)
			if err != nil {
				log.With("question_index", i, "error", err).Warn("Bot call failed")
				r = errorResult(i, q, err)
			} else {
				r = analyze.TestResult{
					QuestionIndex: i,
					Question:      q,
					BotResponse:   &resp,
					Timestamp:     time.Now().UTC(),
					Status:        analyze.ResultSuccess,
				}
			}
		}
		out = append(out, r)
		if onResult != nil {
			onResult(r)
		}
	}
	return out
}

func (t *Tester) wait(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i == 0 || t.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func call(ctx context.Context, cb Callback, q string) (resp string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("bot callback panicked: %v", p)
		}
	}()
	return cb(ctx, q)
}

func errorResult(i int, q string, err error) analyze.TestResult {
	return analyze.TestResult{
		QuestionIndex: i,
		Question:      q,
		Timestamp:     time.Now().UTC(),
		Status:        analyze.ResultError,
		Error:         err.Error(),
	}
}
