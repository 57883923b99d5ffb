/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package semantic scores how close a bot response is to an expected answer.
//
// Scores are reported in the backend's native range (cosine similarity in
// [-1,1] for embeddings, ROUGE-L F1 in [0,1] for the lexical backend).
// Normalize maps a raw score linearly into [0,1]; the judge uses the
// normalized value for score fusion and labels, and keeps the raw value for
// display. When a backend cannot be loaded or a comparison fails the scorer
// returns a sentinel: raw at the range minimum, normalized 0.1, Failed set.
//
// Backends load lazily on first use. Concurrent first callers share one
// in-flight load; a failed load is attempted again on the next call.
package semantic
