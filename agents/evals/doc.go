/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evals collects the outcome of every scored bot response.
//
// The judge reports each evaluation to an Observer: Increment once, then either
// Grade with the overall score or Fail with the error marker. Observers compose:
//
//	obs := evals.NewNamespacedObserver(func(ns string) *evals.ResultCollector {
//		return evals.NewResultCollector(evals.NewMetricsObserver(ns))
//	})
//	evals.Record(obs.Child("stress_test").Child("rubric"), 0.82, "clear and accurate", "")
//
// MetricsObserver exports Prometheus counters, a grade gauge and a score
// histogram labelled by namespace. ResultCollector keeps grades and failures in
// memory for reports (see package report).
package evals
