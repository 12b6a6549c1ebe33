package simulate

import (
	"fmt"
	"math"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/scoring"
)

const scoreTolerance = 1e-9

var scorer = scoring.NewWeightedScorer()

func expectedTotal(scores map[string]float64) (float64, error) {
	return scorer.JudgeTotal(criteria, scores)
}

// verifyDistribution checks that an auto-distribution covers every
// submission exactly once and that loads differ by at most one.
func verifyDistribution(assignments []model.JudgeAssignment, submissions int) error {
	seen := make(map[string]string, submissions)
	lo, hi := math.MaxInt, 0
	for _, a := range assignments {
		lo, hi = min(lo, len(a.Targets)), max(hi, len(a.Targets))
		for _, t := range a.Targets {
			if prev, ok := seen[t.ID]; ok {
				return fmt.Errorf("submission %s assigned to both %s and %s", t.ID, prev, a.JudgeID)
			}
			seen[t.ID] = a.JudgeID
		}
	}
	if len(seen) != submissions {
		return fmt.Errorf("distribution covers %d of %d submissions", len(seen), submissions)
	}
	if len(assignments) > 0 && hi-lo > 1 {
		return fmt.Errorf("unbalanced distribution: loads range %d..%d", lo, hi)
	}
	return nil
}

// verifyLeaderboard compares server aggregates with locally computed ones
// and checks the ranking order.
func verifyLeaderboard(entries []judging.LeaderboardEntry, expected map[string][]float64) error {
	if len(entries) != len(expected) {
		return fmt.Errorf("leaderboard has %d entries, want %d", len(entries), len(expected))
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}
		totals, ok := expected[e.SubmissionID]
		if !ok {
			return fmt.Errorf("unexpected submission %s on leaderboard", e.SubmissionID)
		}
		want := scorer.Aggregate(totals)
		if math.Abs(e.AggregateScore-want) > scoreTolerance || e.ScoreCount != len(totals) {
			return fmt.Errorf("submission %s: aggregate %.6f over %d scores, want %.6f over %d",
				e.SubmissionID, e.AggregateScore, e.ScoreCount, want, len(totals))
		}
		if i > 0 && e.AggregateScore > entries[i-1].AggregateScore {
			return fmt.Errorf("rank %d (%.6f) is above rank %d (%.6f)",
				e.Rank, e.AggregateScore, entries[i-1].Rank, entries[i-1].AggregateScore)
		}
	}
	return nil
}
