/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testevals provides an evals.Observer for tests.
//
// Every call is logged to the test. Fail is logged rather than failing the
// test, because judge tests routinely provoke failed evaluations on purpose;
// wrap the observer in an evals.ResultCollector to assert on them.
//
//	obs := evals.NewResultCollector(testevals.New(t))
//	j, err := judge.New(cfg, rubricJudge, legacy, scorer, judge.WithObserver(obs))
package testevals
