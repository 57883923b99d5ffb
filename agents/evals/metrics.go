/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavin_evaluations_total",
			Help: "Total number of bot responses evaluated",
		},
		[]string{"namespace"},
	)

	failureCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavin_evaluation_failures_total",
			Help: "Total number of evaluations that ended with an error marker",
		},
		[]string{"namespace"},
	)

	gradeGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gavin_evaluation_grade",
			Help: "Most recent overall score (0.0-1.0)",
		},
		[]string{"namespace"},
	)

	// Bucket bounds match the score distribution bands.
	scoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gavin_evaluation_score",
			Help:    "Distribution of overall scores",
			Buckets: []float64{0.5, 0.7, 0.9, 1.0},
		},
		[]string{"namespace"},
	)
)

// MetricsObserver implements Observer with Prometheus metrics
type MetricsObserver struct {
	namespace string
	count     atomic.Int64

	evalCounter prometheus.Counter
	failCounter prometheus.Counter
	gradeGauge  prometheus.Gauge
	scores      prometheus.Observer
}

// NewMetricsObserver creates a metrics observer for the given namespace
func NewMetricsObserver(namespace string) *MetricsObserver {
	labels := prometheus.Labels{"namespace": namespace}
	return &MetricsObserver{
		namespace:   namespace,
		evalCounter: evaluationCounter.With(labels),
		failCounter: failureCounter.With(labels),
		gradeGauge:  gradeGauge.With(labels),
		scores:      scoreHistogram.With(labels),
	}
}

// Increment implements Observer.Increment
func (m *MetricsObserver) Increment() {
	m.count.Add(1)
	m.evalCounter.Inc()
}

// Fail implements Observer.Fail
func (m *MetricsObserver) Fail(string) {
	m.failCounter.Inc()
}

// Grade implements Observer.Grade
func (m *MetricsObserver) Grade(score float64, _ string) {
	m.gradeGauge.Set(score)
	m.scores.Observe(score)
}

// Log implements Observer.Log (no-op for metrics observer)
func (m *MetricsObserver) Log(string) {}

// Total implements Observer.Total
func (m *MetricsObserver) Total() int64 {
	return m.count.Load()
}
