/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import "sync/atomic"

// Counter is an Observer that only counts evaluations. It is the inner
// observer for a ResultCollector when nothing else should see the results.
type Counter struct {
	count atomic.Int64
}

var _ Observer = (*Counter)(nil)

// Fail implements Observer.
func (*Counter) Fail(string) {}

// Log implements Observer.
func (*Counter) Log(string) {}

// Grade implements Observer.
func (*Counter) Grade(float64, string) {}

// Increment implements Observer.
func (c *Counter) Increment() { c.count.Add(1) }

// Total implements Observer.
func (c *Counter) Total() int64 { return c.count.Load() }
