/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package analyze holds the data model shared by the evaluation pipeline:
// question/answer material, bot test results, per-response evaluations,
// aggregate metrics and the session snapshots handed to callers.
package analyze

import (
	"time"
)

// PassThreshold is the overall score at or above which a response passes.
const PassThreshold = 0.7

// Kind identifies the flavour of a session. Sessions of different kinds
// never supersede each other.
type Kind string

const (
	KindStressTest      Kind = "stress_test"
	KindContentAnalysis Kind = "content_analysis"
	KindMultiTurn       Kind = "multi_turn"
)

// Status is a session's position in its state machine.
type Status string

const (
	StatusCreated             Status = "created"
	StatusParsing             Status = "parsing"
	StatusTestingResponses    Status = "testing_responses"
	StatusEvaluatingResponses Status = "evaluating_responses"
	StatusCalculatingMetrics  Status = "calculating_metrics"

	// StatusProcessing is the single working state of multi-turn sessions.
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QAPair is one extracted question with its expected answer. Answer is empty
// for questions synthesized from content.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ResultStatus is the outcome of sending one question to the bot.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// TestResult records one question fired at the bot.
type TestResult struct {
	QuestionIndex int          `json:"question_index"`
	Question      string       `json:"question"`
	BotResponse   *string      `json:"bot_response"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        ResultStatus `json:"status"`
	Error         string       `json:"error,omitempty"`
}

// Usable reports whether the result carries a response that can be scored.
func (r TestResult) Usable() bool {
	return r.Status == ResultSuccess && r.BotResponse != nil
}

// Method names the strategy that produced an Evaluation.
type Method string

const (
	MethodRubric             Method = "rubric"
	MethodRubricWithSemantic Method = "rubric_with_semantic"
	MethodSemanticOnly       Method = "semantic_only"
	MethodLegacy             Method = "legacy"
)

// Reasoning is the judge's explanation of a score.
type Reasoning struct {
	Analysis        string   `json:"analysis,omitempty"`
	ContentAnalysis string   `json:"content_analysis,omitempty"`
	StyleAnalysis   string   `json:"style_analysis,omitempty"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
}

// SemanticScore is a similarity between the expected answer and the bot
// response. Raw is in the backend's native range [RangeMin, RangeMax];
// Normalized is Raw mapped linearly into [0,1].
type SemanticScore struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	Label      string  `json:"label"`
	RangeMin   float64 `json:"range_min"`
	RangeMax   float64 `json:"range_max"`
	Backend    string  `json:"backend"`

	// Failed marks the sentinel score returned when loading or scoring failed.
	Failed bool `json:"failed,omitempty"`

	// Skipped marks a score that was never computed because no expected
	// answer was available. Skipped scores are left out of semantic averages.
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Evaluation is the verdict on one bot response.
//
// OverallScore is in [0,1] for every method except MethodSemanticOnly, where it
// is the raw semantic score in the backend's native range.
type Evaluation struct {
	ContentSimilarity float64            `json:"content_similarity"`
	StyleFidelity     float64            `json:"style_fidelity"`
	OverallScore      float64            `json:"overall_score"`
	DimensionScores   map[string]float64 `json:"dimension_scores,omitempty"`
	Confidence        float64            `json:"confidence"`
	Method            Method             `json:"evaluation_method"`
	Reasoning         Reasoning          `json:"reasoning"`
	Semantic          *SemanticScore     `json:"semantic_score,omitempty"`

	// RubricOverallScore keeps the unfused rubric score when fusion applied.
	RubricOverallScore *float64 `json:"rubric_overall_score,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// EvaluatedResult joins a TestResult with its expected answer and evaluation.
type EvaluatedResult struct {
	TestResult
	ExpectedAnswer string     `json:"expected_answer"`
	Evaluation     Evaluation `json:"evaluation"`
}

// ScoreDistribution buckets overall scores at 0.9, 0.7 and 0.5.
type ScoreDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// Add counts score into its bucket.
func (d *ScoreDistribution) Add(score float64) {
	switch {
	case score >= 0.9:
		d.Excellent++
	case score >= 0.7:
		d.Good++
	case score >= 0.5:
		d.Fair++
	default:
		d.Poor++
	}
}

// AggregateMetrics summarizes a session's evaluated results.
type AggregateMetrics struct {
	TotalQuestions       int     `json:"total_questions"`
	SuccessfulResponses  int     `json:"successful_responses"`
	AvgContentSimilarity float64 `json:"avg_content_similarity"`
	AvgStyleFidelity     float64 `json:"avg_style_fidelity"`
	AvgOverallScore      float64 `json:"avg_overall_score"`

	// AvgSemanticScore averages raw semantic scores over SemanticCount rows;
	// AvgSemanticNormalized averages the normalized ones.
	AvgSemanticScore      float64            `json:"avg_semantic_score"`
	AvgSemanticNormalized float64            `json:"avg_semantic_normalized"`
	SemanticCount         int                `json:"semantic_count"`
	DimensionAverages     map[string]float64 `json:"dimension_averages"`
	MethodCounts          map[Method]int     `json:"method_counts"`
	PassRate              float64            `json:"pass_rate"`
	ScoreDistribution     ScoreDistribution  `json:"score_distribution"`
	CommonStrengths       []string           `json:"common_strengths"`
	CommonWeaknesses      []string           `json:"common_weaknesses"`
}

// Message is one entry of a scripted conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnEvaluation scores one bot reply within a conversation.
type TurnEvaluation struct {
	OverallScore     float64 `json:"overall_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	TechnicalScore   float64 `json:"technical_score"`
	ClarityScore     float64 `json:"clarity_score"`
	PersonaScore     float64 `json:"persona_score"`
	Reasoning        string  `json:"reasoning"`
	Error            string  `json:"error,omitempty"`
}

// TurnResult is the bot's reply to one user message and its evaluation.
type TurnResult struct {
	// MessageIndex is the position of the user message in the script.
	MessageIndex int            `json:"message_index"`
	UserMessage  string         `json:"user_message"`
	BotResponse  *string        `json:"bot_response"`
	Timestamp    time.Time      `json:"timestamp"`
	Status       ResultStatus   `json:"status"`
	Error        string         `json:"error,omitempty"`
	Evaluation   TurnEvaluation `json:"evaluation"`
}

// MultiTurnMetrics averages turn evaluations.
type MultiTurnMetrics struct {
	AvgOverallScore     float64 `json:"avg_overall_score"`
	AvgRelevanceScore   float64 `json:"avg_relevance_score"`
	AvgConsistencyScore float64 `json:"avg_consistency_score"`
	AvgTechnicalScore   float64 `json:"avg_technical_score"`
	AvgClarityScore     float64 `json:"avg_clarity_score"`
	AvgPersonaScore     float64 `json:"avg_persona_score"`
	TotalResponses      int     `json:"total_responses"`
	PassRate            float64 `json:"pass_rate"`
}

// Progress counts work done within a session.
type Progress struct {
	CurrentStep          Status `json:"current_step"`
	QuestionsTotal       int    `json:"questions_total"`
	QuestionsCompleted   int    `json:"questions_completed"`
	EvaluationsCompleted int    `json:"evaluations_completed"`
}

// Snapshot is a copy of a session's state. Status snapshots leave the
// per-item slices nil.
type Snapshot struct {
	ID              string     `json:"session_id"`
	Kind            Kind       `json:"kind"`
	Name            string     `json:"session_name"`
	Status          Status     `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds float64    `json:"duration,omitempty"`
	Progress        Progress   `json:"progress"`
	Error           string     `json:"error,omitempty"`

	InputText        string            `json:"input_text,omitempty"`
	QAPairs          []QAPair          `json:"qa_pairs,omitempty"`
	Questions        []string          `json:"questions,omitempty"`
	TestResults      []TestResult      `json:"test_results,omitempty"`
	EvaluatedResults []EvaluatedResult `json:"evaluated_results,omitempty"`
	Metrics          *AggregateMetrics `json:"aggregate_metrics,omitempty"`

	Messages         []Message         `json:"messages,omitempty"`
	Turns            []TurnResult      `json:"turns,omitempty"`
	MultiTurnMetrics *MultiTurnMetrics `json:"multi_turn_metrics,omitempty"`
}
