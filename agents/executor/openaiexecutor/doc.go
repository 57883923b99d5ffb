/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor runs single structured calls against the OpenAI chat
// completions API, or any server that speaks it. Replies are constrained with
// a strict json_schema response format derived from the response type.
package openaiexecutor
