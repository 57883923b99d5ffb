/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
)

var evaluationPrompt = promptbuilder.MustNewPrompt(`<task>
You are an expert AI evaluator using the MT-Bench methodology to assess response quality.
</task>

{{question}}

{{response}}
{{context}}
{{expected_answer}}
{{persona_context}}

<instructions>
Evaluate the response on these dimensions, each scored from 0.0 to 1.0:
- relevance: How well does the response address the question?
- accuracy: Is the information factually correct and reliable?
- clarity: Is the response clear, well-structured, and easy to understand?
- depth: Does the response provide sufficient detail and insight?
- helpfulness: How useful and actionable is the response?

Then give an overall_score from 0.0 to 1.0, a detailed reasoning, the main
strengths and weaknesses as short phrases, and your confidence from 0.0 to 1.0.

Scoring guidelines:
- 0.9-1.0: Exceptional quality
- 0.7-0.8: Good quality with minor issues
- 0.5-0.6: Acceptable with notable issues
- 0.0-0.4: Poor quality or incorrect
</instructions>

<output_format>
Return ONLY a JSON object with this exact structure:
{
  "overall_score": <float 0-1>,
  "dimension_scores": {
    "relevance": <float 0-1>,
    "accuracy": <float 0-1>,
    "clarity": <float 0-1>,
    "depth": <float 0-1>,
    "helpfulness": <float 0-1>
  },
  "reasoning": "<detailed evaluation reasoning>",
  "strengths": ["<strength1>", "<strength2>"],
  "weaknesses": ["<weakness1>", "<weakness2>"],
  "confidence": <float 0-1>
}
</output_format>`)

// bindSection binds text wrapped in a <name> element, or nothing when text
// is empty and optional is set.
func bindSection(p *promptbuilder.Prompt, name, text string, optional bool) (*promptbuilder.Prompt, error) {
	if optional && text == "" {
		return p.BindTrusted(name, "")
	}
	return p.BindElement(name, text)
}

// Bind implements promptbuilder.Bindable.
func (r *Request) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	var err error
	for _, s := range []struct {
		name, text string
		optional   bool
	}{
		{"question", r.Question, false},
		{"response", r.Response, false},
		{"context", r.Context, true},
		{"expected_answer", r.ExpectedAnswer, true},
		{"persona_context", r.PersonaContext, true},
	} {
		if prompt, err = bindSection(prompt, s.name, s.text, s.optional); err != nil {
			return nil, err
		}
	}
	return prompt, nil
}
