/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rubric scores a bot response on five dimensions (relevance,
// accuracy, clarity, depth, helpfulness) with an LLM judge, following the
// MT-Bench single-answer grading style.
//
// The judge asks for structured output matching Response. Scores are clamped
// into [0,1]; a judge that answers on a 0-10 scale is rescaled. Missing
// dimensions read as 0 and a missing confidence as 0.5.
//
// Evaluate returns errors so callers can fall back to another strategy.
// EvaluateOrDefault never fails and records the error in a zeroed Verdict.
package rubric
