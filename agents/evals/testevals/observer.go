/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testevals

import (
	"sync/atomic"
	"testing"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
)

type observer struct {
	tb    testing.TB
	count atomic.Int64
}

// New creates an Observer that logs to tb.
func New(tb testing.TB) evals.Observer {
	return &observer{tb: tb}
}

func (o *observer) Fail(msg string) {
	o.tb.Helper()
	o.tb.Logf("evaluation failed: %s", msg)
}

func (o *observer) Log(msg string) {
	o.tb.Helper()
	o.tb.Log(msg)
}

func (o *observer) Grade(score float64, reasoning string) {
	o.tb.Helper()
	o.tb.Logf("grade %.3f: %s", score, reasoning)
}

func (o *observer) Increment() {
	o.count.Add(1)
}

func (o *observer) Total() int64 {
	return o.count.Load()
}
