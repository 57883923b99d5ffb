/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tester

import (
	"github.com/arnavk-polka/gavin-ai/agents/promptbuilder"
)

var transcriptPrompt = promptbuilder.MustNewPrompt(`<task>
Analyze this podcast transcript and extract clear question-answer pairs.
Focus on questions that test knowledge about the topic being discussed.
</task>

{{transcript}}

<instructions>
Each question should be self-contained and each answer should be the actual response from the transcript.
</instructions>

<output_format>
Return ONLY a JSON object with a "qa_pairs" array of objects with "question" and "answer" fields:
{
  "qa_pairs": [
    {"question": "What is...", "answer": "The answer is..."},
    {"question": "How does...", "answer": "It works by..."}
  ]
}
</output_format>`)

var contentPrompt = promptbuilder.MustNewPrompt(`<task>
Analyze this content and generate 4-6 specific technical questions about blockchain, crypto, or technology topics mentioned.
</task>

<instructions>
The content could be a blog post, tweet, article, or any other format. Extract the key technical concepts and create questions that would test deep understanding.

Each question should be:
- Self-contained and clear
- Focused on technical details and concepts
- About blockchain, crypto, Web3, or related technology
- Something that would require expert knowledge to answer well
- Specific enough to test understanding, not just general knowledge

Examples of good questions:
- "What is the difference between optimistic and zero-knowledge rollups in terms of security guarantees?"
- "How does the Polkadot relay chain coordinate parachain consensus?"
- "What are the trade-offs between Layer 1 and Layer 2 scaling solutions?"
</instructions>

{{content}}

<output_format>
Return ONLY a JSON object with a "qa_pairs" array of objects with "question" and "answer" fields.
Leave every "answer" empty; the answers come from the bot under test.
{
  "qa_pairs": [
    {"question": "What is the technical difference between...", "answer": ""},
    {"question": "How does parallel execution improve...", "answer": ""}
  ]
}
</output_format>`)

// TranscriptRequest carries the transcript excerpt to extract pairs from.
type TranscriptRequest struct {
	Text string
}

// Bind implements promptbuilder.Bindable.
func (r *TranscriptRequest) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return prompt.BindElement("transcript", r.Text)
}

// ContentRequest carries the content excerpt to generate questions from.
type ContentRequest struct {
	Text string
}

// Bind implements promptbuilder.Bindable.
func (r *ContentRequest) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return prompt.BindElement("content", r.Text)
}
