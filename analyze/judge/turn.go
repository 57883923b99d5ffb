/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"fmt"

	"github.com/arnavk-polka/gavin-ai/agents/agenttrace"
	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/rubric"
	"github.com/chainguard-dev/clog"
)

var turnPrompt = promptbuilder.MustNewPrompt(`<task>
Evaluate this response in a multi-turn conversation context.
</task>

<conversation_history>
{{history}}
</conversation_history>

{{user_message}}

{{bot_response}}

<instructions>
Evaluate the response on:
1. Relevance to the user's message
2. Consistency with conversation history
3. Technical accuracy
4. Clarity and conciseness
5. Adherence to Gavin's persona

Score each from 0.0 to 1.0 and give an overall_score from 0.0 to 1.0 with a detailed reasoning.
</instructions>

<output_format>
Return ONLY a JSON object with overall_score, relevance_score, consistency_score,
technical_score, clarity_score, persona_score and reasoning.
</output_format>`)

// TurnRequest is one bot reply with the conversation before it.
type TurnRequest struct {
	UserMessage string
	BotResponse string
	History     []analyze.Message
}

// TurnResponse is the structured output of the turn judge.
type TurnResponse struct {
	OverallScore     float64 `json:"overall_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	TechnicalScore   float64 `json:"technical_score"`
	ClarityScore     float64 `json:"clarity_score"`
	PersonaScore     float64 `json:"persona_score"`
	Reasoning        string  `json:"reasoning"`
}

// Bind implements promptbuilder.Bindable.
func (r *TurnRequest) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	history := r.History
	if history == nil {
		history = []analyze.Message{}
	}
	var err error
	if prompt, err = prompt.BindYAML("history", history); err != nil {
		return nil, err
	}
	if prompt, err = prompt.BindElement("user_message", r.UserMessage); err != nil {
		return nil, err
	}
	return prompt.BindElement("bot_response", r.BotResponse)
}

// EvaluateTurn scores one reply in a conversation. Failures yield a zeroed
// evaluation with Error set.
func (j *Judge) EvaluateTurn(ctx context.Context, userMessage, botResponse string, history []analyze.Message) analyze.TurnEvaluation {
	ctx = agenttrace.WithOperation(ctx, "turn")
	resp, err := j.turn.Execute(ctx, &TurnRequest{
		UserMessage: userMessage,
		BotResponse: botResponse,
		History:     history,
	})
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Turn evaluation failed")
		te := DefaultTurnEvaluation(fmt.Errorf("turn evaluation: %w", err))
		evals.Record(j.observer, 0, te.Reasoning, te.Error)
		return te
	}
	te := analyze.TurnEvaluation{
		OverallScore:     rubric.Score(resp.OverallScore),
		RelevanceScore:   rubric.Score(resp.RelevanceScore),
		ConsistencyScore: rubric.Score(resp.ConsistencyScore),
		TechnicalScore:   rubric.Score(resp.TechnicalScore),
		ClarityScore:     rubric.Score(resp.ClarityScore),
		PersonaScore:     rubric.Score(resp.PersonaScore),
		Reasoning:        resp.Reasoning,
	}
	evals.Record(j.observer, te.OverallScore, te.Reasoning, "")
	return te
}

// DefaultTurnEvaluation is the zeroed evaluation for a turn that could not
// be scored.
func DefaultTurnEvaluation(err error) analyze.TurnEvaluation {
	return analyze.TurnEvaluation{
		Reasoning: "Evaluation failed",
		Error:     err.Error(),
	}
}

// CalculateMultiTurnMetrics averages turn evaluations over every turn,
// including turns the bot failed to answer.
func CalculateMultiTurnMetrics(turns []analyze.TurnResult) analyze.MultiTurnMetrics {
	var m analyze.MultiTurnMetrics
	if len(turns) == 0 {
		return m
	}
	var passed int
	for _, t := range turns {
		e := t.Evaluation
		m.AvgOverallScore += e.OverallScore
		m.AvgRelevanceScore += e.RelevanceScore
		m.AvgConsistencyScore += e.ConsistencyScore
		m.AvgTechnicalScore += e.TechnicalScore
		m.AvgClarityScore += e.ClarityScore
		m.AvgPersonaScore += e.PersonaScore
		if e.OverallScore >= analyze.PassThreshold {
			passed++
		}
	}
	n := float64(len(turns))
	m.AvgOverallScore /= n
	m.AvgRelevanceScore /= n
	m.AvgConsistencyScore /= n
	m.AvgTechnicalScore /= n
	m.AvgClarityScore /= n
	m.AvgPersonaScore /= n
	m.TotalResponses = len(turns)
	m.PassRate = float64(passed) / n
	return m
}
