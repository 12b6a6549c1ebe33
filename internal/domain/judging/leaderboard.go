package judging

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/okian/hackjudge/internal/domain/model"
)

// LeaderboardEntry is one ranked submission.
type LeaderboardEntry struct {
	Rank           int                    `json:"rank"`
	SubmissionID   string                 `json:"submission_id"`
	TeamID         string                 `json:"team_id,omitempty"`
	OwnerID        string                 `json:"owner_id"`
	AggregateScore float64                `json:"aggregate_score"`
	ScoreCount     int                    `json:"score_count"`
	Status         model.SubmissionStatus `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Scored reports whether at least one judge scored the entry.
func (l LeaderboardEntry) Scored() bool { return l.ScoreCount > 0 }

// compareRank orders scored before unscored, then by aggregate descending,
// score count descending, creation time and id.
func compareRank(a, b model.Submission) int {
	if a.Scored() != b.Scored() {
		if a.Scored() {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.AggregateScore, a.AggregateScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ScoreCount, a.ScoreCount); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// RankSubmissions orders non-draft submissions into a leaderboard. The
// ordering is total, so equal inputs always rank identically.
func RankSubmissions(subs []model.Submission) []LeaderboardEntry {
	ranked := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status != model.StatusDraft {
			ranked = append(ranked, s)
		}
	}
	slices.SortFunc(ranked, compareRank)
	out := make([]LeaderboardEntry, len(ranked))
	for i, s := range ranked {
		out[i] = LeaderboardEntry{
			Rank:           i + 1,
			SubmissionID:   s.ID,
			TeamID:         s.TeamID,
			OwnerID:        s.OwnerID,
			AggregateScore: s.AggregateScore,
			ScoreCount:     s.ScoreCount,
			Status:         s.Status,
			CreatedAt:      s.CreatedAt,
		}
	}
	return out
}

// Leaderboard ranks the round. limit <= 0 returns every entry.
func (e *Engine) Leaderboard(ctx context.Context, hackathonID string, round, limit int) ([]LeaderboardEntry, error) {
	subs, err := e.Submissions(ctx, hackathonID, round)
	if err != nil {
		return nil, err
	}
	out := RankSubmissions(subs)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
