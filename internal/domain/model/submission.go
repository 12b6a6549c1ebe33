package model

import "time"

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

// Submission statuses.
const (
	StatusDraft       SubmissionStatus = "draft"
	StatusSubmitted   SubmissionStatus = "submitted"
	StatusShortlisted SubmissionStatus = "shortlisted"
	StatusRejected    SubmissionStatus = "rejected"
)

// Submission is a team's or participant's entry for one round.
type Submission struct {
	ID                 string           `json:"id"`
	HackathonID        string           `json:"hackathon_id"`
	RoundIndex         int              `json:"round_index"`
	TeamID             string           `json:"team_id,omitempty"`
	OwnerID            string           `json:"owner_id"`
	ProblemStatementID string           `json:"problem_statement_id,omitempty"`
	Status             SubmissionStatus `json:"status"`
	// AggregateScore caches the mean of per-judge totals.
	AggregateScore float64   `json:"aggregate_score"`
	ScoreCount     int       `json:"score_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Scored reports whether at least one judge scored the submission.
func (s Submission) Scored() bool { return s.ScoreCount > 0 }

// ScoreEntry is one judge's scores for one submission in one round.
type ScoreEntry struct {
	ID           string             `json:"id"`
	SubmissionID string             `json:"submission_id"`
	JudgeID      string             `json:"judge_id"`
	RoundIndex   int                `json:"round_index"`
	Scores       map[string]float64 `json:"scores"`
	Feedback     string             `json:"feedback,omitempty"`
	// Total is the weighted per-judge total.
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
