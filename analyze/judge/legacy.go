/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
)

var legacyPrompt = promptbuilder.MustNewPrompt(`<task>
You are an expert AI evaluator. Compare the bot's response to the expected answer and provide scores.
</task>

{{question}}

{{expected_answer}}

{{bot_response}}

<instructions>
Scoring guidelines:
- content_similarity (0-1): How well does the bot capture the key information and meaning?
- style_fidelity (0-1): How well does the bot match the expected communication style?
- overall_score (0-1): Weighted average, 70% content and 30% style.

Keep content_analysis and style_analysis brief. List strengths and weaknesses as short phrases.
</instructions>

<output_format>
Return ONLY a JSON object:
{
  "content_similarity": <float 0-1>,
  "style_fidelity": <float 0-1>,
  "overall_score": <float 0-1>,
  "reasoning": {
    "content_analysis": "Brief explanation of content similarity",
    "style_analysis": "Brief explanation of style match",
    "strengths": ["strength1", "strength2"],
    "weaknesses": ["weakness1", "weakness2"]
  }
}
</output_format>`)

// LegacyRequest is the input to the legacy single-call judge.
type LegacyRequest struct {
	Question       string
	ExpectedAnswer string
	BotResponse    string
}

// LegacyReasoning is the reasoning block of LegacyResponse.
type LegacyReasoning struct {
	ContentAnalysis string   `json:"content_analysis"`
	StyleAnalysis   string   `json:"style_analysis"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
}

// LegacyResponse is the structured output of the legacy judge.
type LegacyResponse struct {
	ContentSimilarity float64         `json:"content_similarity" jsonschema:"description=Key information captured (0-1)"`
	StyleFidelity     float64         `json:"style_fidelity" jsonschema:"description=Communication style match (0-1)"`
	OverallScore      float64         `json:"overall_score" jsonschema:"description=70% content plus 30% style (0-1)"`
	Reasoning         LegacyReasoning `json:"reasoning"`
}

// Bind implements promptbuilder.Bindable.
func (r *LegacyRequest) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	var err error
	if prompt, err = prompt.BindElement("question", r.Question); err != nil {
		return nil, err
	}
	if prompt, err = prompt.BindElement("expected_answer", r.ExpectedAnswer); err != nil {
		return nil, err
	}
	return prompt.BindElement("bot_response", r.BotResponse)
}
