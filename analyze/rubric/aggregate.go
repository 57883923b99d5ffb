/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"github.com/arnavk-polka/gavin-ai/analyze"
)

// Metrics summarizes a set of verdicts.
type Metrics struct {
	TotalEvaluations  int                       `json:"total_evaluations"`
	AvgOverallScore   float64                   `json:"avg_overall_score"`
	PassRate          float64                   `json:"pass_rate"`
	ScoreDistribution analyze.ScoreDistribution `json:"score_distribution"`
	// DimensionAverages is keyed avg_<dimension>.
	DimensionAverages map[string]float64 `json:"dimension_averages"`
	CommonStrengths   []string           `json:"common_strengths"`
	CommonWeaknesses  []string           `json:"common_weaknesses"`
	Method            string             `json:"evaluation_method"`
}

// Aggregate summarizes verdicts. Nil entries are skipped.
func Aggregate(verdicts []*Verdict) Metrics {
	m := Metrics{
		DimensionAverages: make(map[string]float64, len(Dimensions)),
		CommonStrengths:   []string{},
		CommonWeaknesses:  []string{},
		Method:            MethodMTBench,
	}
	for _, d := range Dimensions {
		m.DimensionAverages["avg_"+d] = 0
	}

	var total, passed float64
	dimTotals := make(map[string]float64, len(Dimensions))
	var strengths, weaknesses []string
	for _, v := range verdicts {
		if v == nil {
			continue
		}
		m.TotalEvaluations++
		total += v.OverallScore
		if v.OverallScore >= analyze.PassThreshold {
			passed++
		}
		m.ScoreDistribution.Add(v.OverallScore)
		for _, d := range Dimensions {
			dimTotals[d] += v.DimensionScores[d]
		}
		strengths = append(strengths, v.Strengths...)
		weaknesses = append(weaknesses, v.Weaknesses...)
	}
	if m.TotalEvaluations == 0 {
		return m
	}

	n := float64(m.TotalEvaluations)
	m.AvgOverallScore = total / n
	m.PassRate = passed / n
	for _, d := range Dimensions {
		m.DimensionAverages["avg_"+d] = dimTotals[d] / n
	}
	m.CommonStrengths = analyze.MostCommon(strengths, 5)
	m.CommonWeaknesses = analyze.MostCommon(weaknesses, 5)
	return m
}
