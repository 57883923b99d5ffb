/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"github.com/arnavk-polka/gavin-ai/agents/evals"
)

// Generator is a function type that generates reports from a NamespacedObserver tree.
// It takes an observer tree and a threshold, returning a report string and a boolean
// indicating if any namespace fell below the threshold.
type Generator func(obs *evals.NamespacedObserver[*evals.ResultCollector], threshold float64) (string, bool)

var _ Generator = ByNamespace
