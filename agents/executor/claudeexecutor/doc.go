/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor runs single structured calls against Anthropic's
// Messages API, directly or through Vertex AI.
//
//	exec, err := claudeexecutor.New[*Request, *Verdict](client, prompt,
//		claudeexecutor.WithModel[*Request, *Verdict]("claude-sonnet-4-5"),
//		claudeexecutor.WithRetryConfig[*Request, *Verdict](retry.Default()),
//	)
//	verdict, err := exec.Execute(ctx, req)
package claudeexecutor
