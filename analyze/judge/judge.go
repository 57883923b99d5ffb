/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/agents/executor"
	"github.com/arnavk-polka/gavin-ai/agents/executor/provider"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
	"github.com/chainguard-dev/clog"
)

const (
	rubricWeight   = 0.7
	semanticWeight = 0.3

	// DefaultDelay is the pause between evaluations in a batch.
	DefaultDelay = 300 * time.Millisecond
)

// Failure markers carried in Evaluation.Error.
const (
	NoExpectedAnswer = "no expected answer"
	NoQAPair         = "no QA pair"
)

// Rubric grades a response on the rubric dimensions.
type Rubric interface {
	Evaluate(ctx context.Context, req *rubric.Request) (*rubric.Verdict, error)
}

// Scorer measures similarity to an expected answer.
type Scorer interface {
	Score(ctx context.Context, reference, candidate string) analyze.SemanticScore
}

// Config selects the evaluation strategy.
type Config struct {
	UseRubric   bool
	UseSemantic bool

	// Delay between evaluations in BatchEvaluate. Zero means DefaultDelay;
	// negative disables the pause.
	Delay time.Duration

	// PersonaContext is passed to the rubric judge when set.
	PersonaContext string
}

// Judge dispatches evaluations to the configured strategies.
type Judge struct {
	cfg      Config
	rubric   Rubric
	scorer   Scorer
	legacy   executor.Interface[*LegacyRequest, LegacyResponse]
	turn     executor.Interface[*TurnRequest, TurnResponse]
	observer evals.Observer
}

// Option configures a Judge.
type Option func(*Judge)

// WithObserver reports every evaluation to obs.
func WithObserver(obs evals.Observer) Option {
	return func(j *Judge) { j.observer = obs }
}

// WithTurnExecutor sets the executor used by EvaluateTurn.
func WithTurnExecutor(exec executor.Interface[*TurnRequest, TurnResponse]) Option {
	return func(j *Judge) { j.turn = exec }
}

// New returns a Judge. legacy is always required since it backs the rubric.
// r is required with UseRubric and scorer with UseSemantic.
func New(cfg Config, r Rubric, legacy executor.Interface[*LegacyRequest, LegacyResponse], scorer Scorer, opts ...Option) (*Judge, error) {
	if legacy == nil {
		return nil, errors.New("legacy executor is required")
	}
	if cfg.UseRubric && r == nil {
		return nil, errors.New("rubric judge is required when UseRubric is set")
	}
	if cfg.UseSemantic && scorer == nil {
		return nil, errors.New("semantic scorer is required when UseSemantic is set")
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	j := &Judge{cfg: cfg, rubric: r, scorer: scorer, legacy: legacy}
	for _, opt := range opts {
		opt(j)
	}
	if j.turn == nil {
		j.turn = executor.Func[*TurnRequest, TurnResponse](func(context.Context, *TurnRequest) (TurnResponse, error) {
			return TurnResponse{}, errors.New("turn evaluation is not configured")
		})
	}
	return j, nil
}

// NewFromProvider builds the rubric, legacy and turn executors for model.
// scorer may be nil when cfg.UseSemantic is false.
func NewFromProvider(ctx context.Context, clients *provider.Clients, model string, cfg Config, scorer Scorer, opts ...Option) (*Judge, error) {
	var r Rubric
	if cfg.UseRubric {
		rj, err := rubric.NewFromProvider(ctx, clients, model)
		if err != nil {
			return nil, err
		}
		r = rj
	}
	legacy, err := provider.New[*LegacyRequest, LegacyResponse](ctx, clients, legacyPrompt, provider.Settings{
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   1000,
		SchemaName:  "legacy_evaluation",
	})
	if err != nil {
		return nil, fmt.Errorf("creating legacy executor: %w", err)
	}
	turn, err := provider.New[*TurnRequest, TurnResponse](ctx, clients, turnPrompt, provider.Settings{
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   1000,
		SchemaName:  "turn_evaluation",
	})
	if err != nil {
		return nil, fmt.Errorf("creating turn executor: %w", err)
	}
	return New(cfg, r, legacy, scorer, append([]Option{WithTurnExecutor(turn)}, opts...)...)
}

// Evaluate scores one response.
func (j *Judge) Evaluate(ctx context.Context, question, response, expected string) analyze.Evaluation {
	var ev analyze.Evaluation
	switch {
	case j.cfg.UseRubric:
		ev = j.evaluateRubric(ctx, question, response, expected)
	case j.cfg.UseSemantic:
		ev = j.evaluateSemantic(ctx, response, expected)
	default:
		ev = j.evaluateLegacy(ctx, question, response, expected)
	}
	evals.Record(j.observer, grade(ev), summary(ev), ev.Error)
	return ev
}

// grade is the [0, 1] score reported to the observer. Semantic only
// evaluations keep the backend's native range in OverallScore.
func grade(ev analyze.Evaluation) float64 {
	if ev.Method == analyze.MethodSemanticOnly && ev.Semantic != nil && !ev.Semantic.Skipped {
		return ev.Semantic.Normalized
	}
	return ev.OverallScore
}

// skippedSemantic marks an evaluation whose semantic score could not be
// computed for lack of a reference answer.
func skippedSemantic() *analyze.SemanticScore {
	return &analyze.SemanticScore{Skipped: true, Label: "skipped", Error: NoExpectedAnswer}
}

func (j *Judge) evaluateRubric(ctx context.Context, question, response, expected string) analyze.Evaluation {
	v, err := j.rubric.Evaluate(ctx, &rubric.Request{
		Question:       question,
		Response:       response,
		ExpectedAnswer: expected,
		PersonaContext: j.cfg.PersonaContext,
	})
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Rubric evaluation failed, falling back to legacy")
		return j.evaluateLegacy(ctx, question, response, expected)
	}

	ev := analyze.Evaluation{
		ContentSimilarity: mean(v.DimensionScores[rubric.Relevance], v.DimensionScores[rubric.Accuracy]),
		StyleFidelity:     mean(v.DimensionScores[rubric.Clarity], v.DimensionScores[rubric.Helpfulness]),
		OverallScore:      v.OverallScore,
		DimensionScores:   v.DimensionScores,
		Confidence:        v.Confidence,
		Method:            analyze.MethodRubric,
		Reasoning: analyze.Reasoning{
			Analysis:   v.Reasoning,
			Strengths:  v.Strengths,
			Weaknesses: v.Weaknesses,
		},
	}
	if !j.cfg.UseSemantic {
		return ev
	}
	if strings.TrimSpace(expected) == "" {
		ev.Semantic = skippedSemantic()
		return ev
	}

	sc := j.scorer.Score(ctx, expected, response)
	rubricOverall := ev.OverallScore
	ev.OverallScore = analyze.Clamp01(Fuse(rubricOverall, sc.Normalized))
	ev.RubricOverallScore = &rubricOverall
	ev.Semantic = &sc
	ev.Method = analyze.MethodRubricWithSemantic
	return ev
}

// Fuse combines a rubric score and a normalized semantic score.
func Fuse(rubricOverall, semanticNormalized float64) float64 {
	return rubricWeight*rubricOverall + semanticWeight*semanticNormalized
}

func (j *Judge) evaluateSemantic(ctx context.Context, response, expected string) analyze.Evaluation {
	if strings.TrimSpace(expected) == "" {
		ev := zeroEvaluation(analyze.MethodSemanticOnly, NoExpectedAnswer)
		ev.Semantic = skippedSemantic()
		return ev
	}
	sc := j.scorer.Score(ctx, expected, response)
	ev := analyze.Evaluation{
		ContentSimilarity: sc.Normalized,
		OverallScore:      sc.Raw,
		Method:            analyze.MethodSemanticOnly,
		Semantic:          &sc,
		Reasoning: analyze.Reasoning{
			Analysis: fmt.Sprintf("Semantic similarity %.3f in [%g, %g] (%s)",
				sc.Raw, sc.RangeMin, sc.RangeMax, sc.Label),
			Strengths:  []string{},
			Weaknesses: []string{},
		},
	}
	if sc.Failed {
		ev.Reasoning.Weaknesses = []string{"Semantic scoring error: " + sc.Error}
	} else {
		ev.Confidence = 1
	}
	return ev
}

func (j *Judge) evaluateLegacy(ctx context.Context, question, response, expected string) analyze.Evaluation {
	resp, err := j.legacy.Execute(agenttrace.WithOperation(ctx, "legacy"), &LegacyRequest{
		Question:       question,
		ExpectedAnswer: expected,
		BotResponse:    response,
	})
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Legacy evaluation failed")
		return zeroEvaluation(analyze.MethodLegacy, err.Error())
	}
	return analyze.Evaluation{
		ContentSimilarity: rubric.Score(resp.ContentSimilarity),
		StyleFidelity:     rubric.Score(resp.StyleFidelity),
		OverallScore:      rubric.Score(resp.OverallScore),
		Confidence:        1,
		Method:            analyze.MethodLegacy,
		Reasoning: analyze.Reasoning{
			ContentAnalysis: resp.Reasoning.ContentAnalysis,
			StyleAnalysis:   resp.Reasoning.StyleAnalysis,
			Strengths:       nonNil(resp.Reasoning.Strengths),
			Weaknesses:      nonNil(resp.Reasoning.Weaknesses),
		},
	}
}

// zeroEvaluation is the evaluation recorded when nothing could be scored.
func zeroEvaluation(method analyze.Method, msg string) analyze.Evaluation {
	return analyze.Evaluation{
		Method: method,
		Reasoning: analyze.Reasoning{
			Analysis:        "Evaluation failed: " + msg,
			ContentAnalysis: "Evaluation failed",
			StyleAnalysis:   "Evaluation failed",
			Strengths:       []string{},
			Weaknesses:      []string{"Evaluation error: " + msg},
		},
		Error: msg,
	}
}

func (j *Judge) method() analyze.Method {
	switch {
	case j.cfg.UseRubric:
		return analyze.MethodRubric
	case j.cfg.UseSemantic:
		return analyze.MethodSemanticOnly
	default:
		return analyze.MethodLegacy
	}
}

// BatchEvaluate evaluates every usable result against its QA pair. The
// output has one row per result, in order.
func (j *Judge) BatchEvaluate(ctx context.Context, results []analyze.TestResult, pairs []analyze.QAPair) []analyze.EvaluatedResult {
	return j.BatchEvaluateFunc(ctx, results, pairs, nil)
}

// BatchEvaluateFunc is BatchEvaluate calling onEvaluated after each
// evaluation that reached a strategy.
func (j *Judge) BatchEvaluateFunc(ctx context.Context, results []analyze.TestResult, pairs []analyze.QAPair, onEvaluated func(done int)) []analyze.EvaluatedResult {
	log := clog.FromContext(ctx)
	out := make([]analyze.EvaluatedResult, len(results))

	// usable maps output rows to evaluate onto their QA pair.
	usable := make(map[int]analyze.QAPair, len(results))
	order := make([]int, 0, len(results))
	for i, r := range results {
		out[i].TestResult = r
		qi := r.QuestionIndex
		hasPair := qi >= 0 && qi < len(pairs)
		if hasPair {
			out[i].ExpectedAnswer = pairs[qi].Answer
		}
		switch {
		case !r.Usable():
			msg := r.Error
			if msg == "" {
				msg = "no bot response"
			}
			out[i].Evaluation = zeroEvaluation(j.method(), msg)
		case !hasPair:
			out[i].Evaluation = zeroEvaluation(j.method(), NoQAPair)
		default:
			usable[i] = pairs[qi]
			order = append(order, i)
		}
	}
	log.With("usable", len(order), "total", len(results)).Info("Evaluating responses")

	for n, i := range order {
		if n > 0 && j.cfg.Delay > 0 {
			if err := sleep(ctx, j.cfg.Delay); err != nil {
				for _, k := range order[n:] {
					out[k].Evaluation = zeroEvaluation(j.method(), err.Error())
				}
				break
			}
		}
		if err := ctx.Err(); err != nil {
			for _, k := range order[n:] {
				out[k].Evaluation = zeroEvaluation(j.method(), err.Error())
			}
			break
		}
		r := results[i]
		ectx := agenttrace.WithQuestion(ctx, r.QuestionIndex)
		out[i].Evaluation = j.Evaluate(ectx, r.Question, *r.BotResponse, usable[i].Answer)
		if onEvaluated != nil {
			onEvaluated(n + 1)
		}
	}
	return out
}

// CalculateAggregateMetrics summarizes evaluated rows. Only rows whose bot
// call succeeded contribute to averages, pass rate and distribution;
// TotalQuestions counts every row.
func CalculateAggregateMetrics(rows []analyze.EvaluatedResult) analyze.AggregateMetrics {
	m := analyze.AggregateMetrics{
		TotalQuestions:    len(rows),
		DimensionAverages: map[string]float64{},
		MethodCounts:      map[analyze.Method]int{},
		CommonStrengths:   []string{},
		CommonWeaknesses:  []string{},
	}

	var content, style, overall, semRaw, semNorm float64
	var passed int
	dimSum := map[string]float64{}
	dimCount := map[string]int{}
	var strengths, weaknesses []string
	for _, r := range rows {
		if r.Status != analyze.ResultSuccess {
			continue
		}
		e := r.Evaluation
		m.SuccessfulResponses++
		content += e.ContentSimilarity
		style += e.StyleFidelity
		overall += e.OverallScore
		if e.OverallScore >= analyze.PassThreshold {
			passed++
		}
		m.ScoreDistribution.Add(e.OverallScore)
		if e.Method != "" {
			m.MethodCounts[e.Method]++
		}
		for d, v := range e.DimensionScores {
			dimSum[d] += v
			dimCount[d]++
		}
		if e.Semantic != nil && !e.Semantic.Skipped {
			m.SemanticCount++
			semRaw += e.Semantic.Raw
			semNorm += e.Semantic.Normalized
		}
		strengths = append(strengths, e.Reasoning.Strengths...)
		weaknesses = append(weaknesses, e.Reasoning.Weaknesses...)
	}
	if m.SuccessfulResponses == 0 {
		return m
	}

	n := float64(m.SuccessfulResponses)
	m.AvgContentSimilarity = content / n
	m.AvgStyleFidelity = style / n
	m.AvgOverallScore = overall / n
	m.PassRate = float64(passed) / n
	if m.SemanticCount > 0 {
		m.AvgSemanticScore = semRaw / float64(m.SemanticCount)
		m.AvgSemanticNormalized = semNorm / float64(m.SemanticCount)
	}
	for d, sum := range dimSum {
		m.DimensionAverages[d] = sum / float64(dimCount[d])
	}
	m.CommonStrengths = analyze.MostCommon(strengths, 5)
	m.CommonWeaknesses = analyze.MostCommon(weaknesses, 5)
	return m
}

func summary(ev analyze.Evaluation) string {
	if ev.Reasoning.Analysis != "" {
		return ev.Reasoning.Analysis
	}
	return ev.Reasoning.ContentAnalysis
}

func mean(a, b float64) float64 { return (a + b) / 2 }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
