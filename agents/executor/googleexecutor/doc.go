/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googleexecutor runs single structured calls against Gemini, either
// through the Gemini API or Vertex AI. Replies are constrained with a JSON
// response schema derived from the response type.
package googleexecutor
