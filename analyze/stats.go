/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package analyze

import (
	"cmp"
	"slices"
)

// MostCommon returns up to n distinct items ordered by descending frequency.
// Ties are broken lexically so the result is deterministic.
func MostCommon(items []string, n int) []string {
	counts := make(map[string]int, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		counts[it]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
