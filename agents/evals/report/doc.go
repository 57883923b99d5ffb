/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders an evals.NamespacedObserver tree of ResultCollectors
// as a markdown table, one row per namespace that saw evaluations, with the
// failure messages and below-threshold grades listed underneath.
package report
