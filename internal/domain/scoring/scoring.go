// Package scoring computes weighted per-judge totals and submission aggregates.
//
// All arithmetic runs on decimals and is rounded to a fixed number of places
// so equal inputs always produce bit-identical float64 results for ranking.
package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/hackjudge/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultPrecision = 6
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithPrecision sets the number of decimal places results are rounded to.
func WithPrecision(places int32) Option {
	return func(s *WeightedScorer) {
		if places >= 0 {
			s.precision = places
		}
	}
}

// Scorer turns criterion scores into totals and totals into aggregates.
type Scorer interface {
	// JudgeTotal validates scores against criteria and returns Σ(w·s)/Σw.
	JudgeTotal(criteria []model.Criterion, scores map[string]float64) (float64, error)
	// Aggregate returns the mean of per-judge totals, or 0 for none.
	Aggregate(totals []float64) float64
}

// WeightedScorer implements Scorer with decimal arithmetic.
type WeightedScorer struct {
	precision int32
}

// NewWeightedScorer creates a scorer with configuration options.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{precision: defaultPrecision}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JudgeTotal computes one judge's weighted total. Every criterion must be
// scored exactly once and within [0, maxScore].
func (s *WeightedScorer) JudgeTotal(criteria []model.Criterion, scores map[string]float64) (float64, error) {
	if len(criteria) == 0 {
		return 0, ErrNoCriteria
	}
	known := make(map[string]struct{}, len(criteria))
	sum, weights := decimal.Zero, decimal.Zero
	for _, c := range criteria {
		known[c.Name] = struct{}{}
		v, ok := scores[c.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingCriterion, c.Name)
		}
		if v < 0 || v > c.MaxScore {
			return 0, fmt.Errorf("%w: %q scored %g, allowed [0, %g]", ErrOutOfRange, c.Name, v, c.MaxScore)
		}
		w := decimal.NewFromFloat(c.Weight)
		sum = sum.Add(w.Mul(decimal.NewFromFloat(v)))
		weights = weights.Add(w)
	}
	for name := range scores {
		if _, ok := known[name]; !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
		}
	}
	if !weights.IsPositive() {
		return 0, ErrNoCriteria
	}
	total, _ := sum.DivRound(weights, s.precision).Float64()
	return total, nil
}

// Aggregate computes the mean of per-judge totals.
func (s *WeightedScorer) Aggregate(totals []float64) float64 {
	if len(totals) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(decimal.NewFromFloat(t))
	}
	mean, _ := sum.DivRound(decimal.NewFromInt(int64(len(totals))), s.precision).Float64()
	return mean
}

// AggregateEntries is Aggregate over the totals of ledger entries.
func AggregateEntries(s Scorer, entries []model.ScoreEntry) (float64, int) {
	totals := make([]float64, 0, len(entries))
	for _, e := range entries {
		totals = append(totals, e.Total)
	}
	return s.Aggregate(totals), len(totals)
}
