/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/singleflight"
)

// ErrNoReference is returned when there is no expected answer to compare against.
var ErrNoReference = errors.New("no expected answer")

// SentinelNormalized is the normalized score reported for failed comparisons.
const SentinelNormalized = 0.1

// Range is the closed interval a backend's raw scores fall in.
type Range struct {
	Min, Max float64
}

// Backend produces a Model. Load may be slow and is called at most once per
// successful load.
type Backend interface {
	Name() string
	Range() Range
	Load(ctx context.Context) (Model, error)
}

// Model compares reference/candidate pairs. The returned slice has one raw
// score per pair.
type Model interface {
	Similarity(ctx context.Context, references, candidates []string) ([]float64, error)
}

// Label is a qualitative reading of a normalized score.
type Label string

const (
	LabelExcellent Label = "excellent"
	LabelGood      Label = "good"
	LabelModerate  Label = "moderate"
	LabelFair      Label = "fair"
	LabelPoor      Label = "poor"
	LabelVeryPoor  Label = "very_poor"
)

// Interpret buckets a normalized score.
func Interpret(normalized float64) Label {
	switch {
	case normalized >= 0.8:
		return LabelExcellent
	case normalized >= 0.7:
		return LabelGood
	case normalized >= 0.6:
		return LabelModerate
	case normalized >= 0.4:
		return LabelFair
	case normalized >= 0.2:
		return LabelPoor
	default:
		return LabelVeryPoor
	}
}

// Normalize maps raw linearly from r into [0,1], clamping values outside r.
func Normalize(raw float64, r Range) float64 {
	if r.Max <= r.Min {
		return 0
	}
	n := (raw - r.Min) / (r.Max - r.Min)
	return min(max(n, 0), 1)
}

// Scorer lazily loads a backend's model and scores pairs with it.
type Scorer struct {
	backend Backend
	group   singleflight.Group

	mu    sync.Mutex
	model Model
}

// New returns a Scorer for backend. Nothing is loaded until the first score.
func New(backend Backend) *Scorer {
	return &Scorer{backend: backend}
}

// Backend returns the name of the scoring backend.
func (s *Scorer) Backend() string {
	return s.backend.Name()
}

// Range returns the backend's native score range.
func (s *Scorer) Range() Range {
	return s.backend.Range()
}

func (s *Scorer) load(ctx context.Context) (Model, error) {
	s.mu.Lock()
	m := s.model
	s.mu.Unlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := s.group.Do("load", func() (any, error) {
		s.mu.Lock()
		m := s.model
		s.mu.Unlock()
		if m != nil {
			return m, nil
		}

		// Waiters share this load, so it must outlive the first caller.
		lctx := context.WithoutCancel(ctx)
		clog.FromContext(ctx).With("backend", s.backend.Name()).Info("Loading semantic similarity model")
		m, err := s.backend.Load(lctx)
		if err != nil {
			return nil, fmt.Errorf("loading %s model: %w", s.backend.Name(), err)
		}
		s.mu.Lock()
		s.model = m
		s.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}

// Score compares candidate to reference. It never fails; problems yield the
// sentinel score with Error set.
func (s *Scorer) Score(ctx context.Context, reference, candidate string) analyze.SemanticScore {
	return s.ScoreBatch(ctx, []string{reference}, []string{candidate})[0]
}

// ScoreBatch compares candidates[i] to references[i]. Mismatched lengths yield
// one sentinel per reference. Pairs with an empty reference get the sentinel
// and ErrNoReference without reaching the model.
func (s *Scorer) ScoreBatch(ctx context.Context, references, candidates []string) []analyze.SemanticScore {
	log := clog.FromContext(ctx)
	out := make([]analyze.SemanticScore, len(references))

	if len(references) != len(candidates) {
		err := fmt.Errorf("references and candidates differ in length: %d != %d", len(references), len(candidates))
		for i := range out {
			out[i] = s.sentinel(err)
		}
		return out
	}

	idx := make([]int, 0, len(references))
	refs := make([]string, 0, len(references))
	cands := make([]string, 0, len(references))
	for i, ref := range references {
		if strings.TrimSpace(ref) == "" {
			out[i] = s.sentinel(ErrNoReference)
			continue
		}
		idx = append(idx, i)
		refs = append(refs, ref)
		cands = append(cands, candidates[i])
	}
	if len(idx) == 0 {
		return out
	}

	model, err := s.load(ctx)
	if err != nil {
		log.With("error", err).Warn("Semantic model unavailable, using sentinel scores")
		for _, i := range idx {
			out[i] = s.sentinel(err)
		}
		return out
	}

	raws, err := model.Similarity(ctx, refs, cands)
	if err == nil && len(raws) != len(refs) {
		err = fmt.Errorf("model returned %d scores for %d pairs", len(raws), len(refs))
	}
	if err != nil {
		log.With("error", err).Warn("Semantic scoring failed, using sentinel scores")
		for _, i := range idx {
			out[i] = s.sentinel(err)
		}
		return out
	}

	r := s.backend.Range()
	for j, i := range idx {
		raw := min(max(raws[j], r.Min), r.Max)
		n := Normalize(raw, r)
		out[i] = analyze.SemanticScore{
			Raw:        raw,
			Normalized: n,
			Label:      string(Interpret(n)),
			RangeMin:   r.Min,
			RangeMax:   r.Max,
			Backend:    s.backend.Name(),
		}
	}
	return out
}

func (s *Scorer) sentinel(err error) analyze.SemanticScore {
	r := s.backend.Range()
	return analyze.SemanticScore{
		Raw:        r.Min,
		Normalized: SentinelNormalized,
		Label:      string(Interpret(SentinelNormalized)),
		RangeMin:   r.Min,
		RangeMax:   r.Max,
		Backend:    s.backend.Name(),
		Failed:     true,
		Error:      err.Error(),
	}
}
