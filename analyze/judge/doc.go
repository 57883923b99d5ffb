/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package judge picks an evaluation strategy for each bot response and turns
// its output into an analyze.Evaluation.
//
// The strategy is fixed at construction:
//
//   - UseRubric: grade with the rubric judge, falling back to the legacy
//     single-call judge when the rubric fails. With UseSemantic also set and
//     an expected answer present, the overall score is fused as
//     0.7*rubric + 0.3*normalized semantic similarity.
//   - UseSemantic alone: score semantic similarity only. OverallScore is
//     then the raw similarity in the backend's native range.
//   - Neither: legacy judge only.
//
// No strategy failure escapes Evaluate; the worst case is a zeroed
// Evaluation with Error set.
package judge
