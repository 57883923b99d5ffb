/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"context"
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

// MethodMTBench labels verdicts and metrics produced by this package.
const MethodMTBench = "mt_bench"

// Dimension names, in prompt order.
const (
	Relevance   = "relevance"
	Accuracy    = "accuracy"
	Clarity     = "clarity"
	Depth       = "depth"
	Helpfulness = "helpfulness"
)

// Dimensions lists every scored dimension.
var Dimensions = []string{Relevance, Accuracy, Clarity, Depth, Helpfulness}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1500
	defaultDelay       = 300 * time.Millisecond
	defaultConfidence  = 0.5
)

// ConversationDelay is the pause between calls for judges that grade whole
// conversations.
const ConversationDelay = 200 * time.Millisecond

// Request is one response to grade.
type Request struct {
	Question string
	Response string

	// Optional.
	Context        string
	ExpectedAnswer string
	PersonaContext string
}

// DimensionScores is the per-dimension part of Response. Nil means the
// judge left the dimension out.
type DimensionScores struct {
	Relevance   *float64 `json:"relevance" jsonschema:"description=How well the response addresses the question (0-1)"`
	Accuracy    *float64 `json:"accuracy" jsonschema:"description=Factual correctness and reliability (0-1)"`
	Clarity     *float64 `json:"clarity" jsonschema:"description=Structure and readability (0-1)"`
	Depth       *float64 `json:"depth" jsonschema:"description=Detail and insight (0-1)"`
	Helpfulness *float64 `json:"helpfulness" jsonschema:"description=Usefulness and actionability (0-1)"`
}

// Response is the structured output requested from the judge model.
type Response struct {
	OverallScore    float64         `json:"overall_score" jsonschema:"description=Overall quality from 0 to 1"`
	DimensionScores DimensionScores `json:"dimension_scores"`
	Reasoning       string          `json:"reasoning" jsonschema:"description=Detailed evaluation reasoning"`
	Strengths       []string        `json:"strengths"`
	Weaknesses      []string        `json:"weaknesses"`
	Confidence      *float64        `json:"confidence" jsonschema:"description=Confidence in this evaluation from 0 to 1"`
}

// Verdict is a normalized rubric evaluation.
type Verdict struct {
	OverallScore    float64            `json:"overall_score"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Reasoning       string             `json:"reasoning"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	Confidence      float64            `json:"confidence"`
	Method          string             `json:"evaluation_method"`
	Error           string             `json:"error,omitempty"`
}

// Judge grades responses with an LLM.
type Judge struct {
	exec  executor.Interface[*Request, Response]
	delay time.Duration
}

// Option configures a Judge.
type Option func(*Judge)

// WithDelay sets the pause between calls in batch and conversation evaluation.
func WithDelay(d time.Duration) Option {
	return func(j *Judge) { j.delay = d }
}

// New returns a Judge calling exec.
func New(exec executor.Interface[*Request, Response], opts ...Option) *Judge {
	j := &Judge{exec: exec, delay: defaultDelay}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewFromProvider builds the judge executor for model from clients.
func NewFromProvider(ctx context.Context, clients *provider.Clients, model string, opts ...Option) (*Judge, error) {
	exec, err := provider.New[*Request, Response](ctx, clients, evaluationPrompt, provider.Settings{
		Model:       model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		SchemaName:  "rubric_evaluation",
	})
	if err != nil {
		return nil, fmt.Errorf("creating rubric executor: %w", err)
	}
	return New(exec, opts...), nil
}

// Evaluate grades one response.
func (j *Judge) Evaluate(ctx context.Context, req *Request) (*Verdict, error) {
	if req == nil || strings.TrimSpace(req.Response) == "" {
		return nil, errors.New("response is required")
	}
	ctx = agenttrace.WithOperation(ctx, "rubric")
	resp, err := j.exec.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rubric evaluation: %w", err)
	}
	v := normalize(resp)
	clog.FromContext(ctx).With("overall_score", v.OverallScore, "confidence", v.Confidence).Debug("Rubric evaluation complete")
	return v, nil
}

// EvaluateOrDefault grades one response, returning a zeroed verdict that
// carries the error when grading fails.
func (j *Judge) EvaluateOrDefault(ctx context.Context, req *Request) *Verdict {
	v, err := j.Evaluate(ctx, req)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Rubric evaluation failed")
		return Default(err)
	}
	return v
}

// EvaluateBatch grades requests in order, pausing between calls. Failures
// become default verdicts so the result lines up with reqs.
func (j *Judge) EvaluateBatch(ctx context.Context, reqs []*Request) []*Verdict {
	out := make([]*Verdict, len(reqs))
	for i, req := range reqs {
		if i > 0 {
			if err := sleep(ctx, j.delay); err != nil {
				for k := i; k < len(reqs); k++ {
					out[k] = Default(err)
				}
				return out
			}
		}
		out[i] = j.EvaluateOrDefault(ctx, req)
	}
	return out
}

// EvaluateConversation grades every assistant message of conversation
// against the user message before it and the history so far. Calls are
// paced like EvaluateBatch.
func (j *Judge) EvaluateConversation(ctx context.Context, conversation []analyze.Message, persona string) []*Verdict {
	var reqs []*Request
	for i, msg := range conversation {
		if msg.Role != "assistant" {
			continue
		}
		var question string
		if i > 0 && conversation[i-1].Role == "user" {
			question = conversation[i-1].Content
		}
		reqs = append(reqs, &Request{
			Question:       question,
			Response:       msg.Content,
			Context:        FormatConversation(conversation[:i]),
			PersonaContext: persona,
		})
	}
	return j.EvaluateBatch(ctx, reqs)
}

// FormatConversation renders messages one per line as "Role: content".
func FormatConversation(messages []analyze.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Default is the verdict reported when grading failed.
func Default(err error) *Verdict {
	msg := err.Error()
	dims := make(map[string]float64, len(Dimensions))
	for _, d := range Dimensions {
		dims[d] = 0
	}
	return &Verdict{
		DimensionScores: dims,
		Reasoning:       "Evaluation failed: " + msg,
		Strengths:       []string{},
		Weaknesses:      []string{"Evaluation error: " + msg},
		Method:          MethodMTBench,
		Error:           msg,
	}
}

// Score maps a judge score into [0,1]. Values in (1,10] are read as a 0-10
// scale.
func Score(v float64) float64 {
	if v > 1 && v <= 10 {
		v /= 10
	}
	return analyze.Clamp01(v)
}

func normalize(r Response) *Verdict {
	dims := map[string]float64{
		Relevance:   deref(r.DimensionScores.Relevance),
		Accuracy:    deref(r.DimensionScores.Accuracy),
		Clarity:     deref(r.DimensionScores.Clarity),
		Depth:       deref(r.DimensionScores.Depth),
		Helpfulness: deref(r.DimensionScores.Helpfulness),
	}
	for k, v := range dims {
		dims[k] = Score(v)
	}
	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = Score(*r.Confidence)
	}
	reasoning := r.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}
	return &Verdict{
		OverallScore:    Score(r.OverallScore),
		DimensionScores: dims,
		Reasoning:       reasoning,
		Strengths:       nonNil(r.Strengths),
		Weaknesses:      nonNil(r.Weaknesses),
		Confidence:      confidence,
		Method:          MethodMTBench,
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
