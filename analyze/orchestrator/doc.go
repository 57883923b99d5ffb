/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package orchestrator runs evaluation sessions in the background and keeps
// their state for polling.
//
// Every session runs in its own goroutine and moves forward through
//
//	created -> parsing -> testing_responses -> evaluating_responses -> calculating_metrics -> completed
//
// or, for multi-turn sessions, created -> processing -> completed. Any stage
// may end in failed. Sessions are addressed by id. Starting a session cancels
// the in-flight session of the same kind and waits for it to stop before the
// new one runs; the superseded session ends failed and is left untouched
// from then on.
package orchestrator
