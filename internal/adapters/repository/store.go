// Package repository defines the judging store contracts and their
// in-memory and SQLite implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/hackjudge/internal/domain/model"
)

// AggregateFunc computes a submission's aggregate and score count from its
// full ledger. Stores call it inside the same atomic section as the write.
type AggregateFunc func(entries []model.ScoreEntry) (aggregate float64, count int)

// AssignmentFunc derives the next assignment record from the current one.
// exists is false when the judge holds no record for the round yet.
type AssignmentFunc func(current model.JudgeAssignment, exists bool) (model.JudgeAssignment, error)

// SubmissionFunc derives the next submission state from the current one.
type SubmissionFunc func(current model.Submission) (model.Submission, error)

// ToggleFunc derives the next submission and round progress for a manual
// shortlist override. round holds every submission of the same round.
type ToggleFunc func(sub model.Submission, progress model.RoundProgress, found bool, round []model.Submission) (model.Submission, model.RoundProgress, error)

// ScoreState is what a score write can depend on, read inside the write's
// atomic section.
type ScoreState struct {
	Submission    model.Submission
	Progress      model.RoundProgress
	HasProgress   bool
	Assignment    model.JudgeAssignment
	HasAssignment bool
}

// ScoreGuard vetoes a score write by returning an error. Nothing is written
// when it does.
type ScoreGuard func(state ScoreState) error

// ScoreWrite is the outcome of an atomic score upsert.
type ScoreWrite struct {
	Entry      model.ScoreEntry
	Submission model.Submission
	Created    bool
}

// Counts summarizes store contents for /stats.
type Counts struct {
	Hackathons  int `json:"hackathons"`
	Submissions int `json:"submissions"`
	Scores      int `json:"scores"`
	Assignments int `json:"assignments"`
}

// HackathonStore holds hackathon configuration including rounds and criteria.
type HackathonStore interface {
	PutHackathon(ctx context.Context, h model.Hackathon) error
	// Hackathon returns ErrNotFound for unknown ids.
	Hackathon(ctx context.Context, id string) (model.Hackathon, error)
}

// TeamStore answers team membership questions for a hackathon.
type TeamStore interface {
	// PutTeam replaces the member list of a team.
	PutTeam(ctx context.Context, team model.Team) error
	// TeamOf returns the user's team id, or "" when the user is teamless.
	TeamOf(ctx context.Context, hackathonID, userID string) (string, error)
	// IsTeam reports whether id names a team of the hackathon, either
	// registered or carried by one of its submissions.
	IsTeam(ctx context.Context, hackathonID, id string) (bool, error)
}

// SubmissionStore provides CRUD for submissions. Status rules live in the
// judging engine; the store only persists what it is given.
type SubmissionStore interface {
	// CreateSubmission returns ErrConflict if the id already exists.
	CreateSubmission(ctx context.Context, s model.Submission) error
	Submission(ctx context.Context, id string) (model.Submission, error)
	// Submissions lists a round ordered by (created_at, id).
	Submissions(ctx context.Context, hackathonID string, round int) ([]model.Submission, error)
	// LatestSubmission returns the newest non-draft submission of the round
	// owned by ownerID or carrying teamID. Empty ids never match.
	LatestSubmission(ctx context.Context, hackathonID string, round int, ownerID, teamID string) (model.Submission, error)
	// UpdateSubmission atomically rewrites status and updated_at.
	UpdateSubmission(ctx context.Context, id string, fn SubmissionFunc) (model.Submission, error)
}

// AssignmentStore holds at most one JudgeAssignment per (hackathon, round, judge).
type AssignmentStore interface {
	UpsertAssignment(ctx context.Context, hackathonID string, round int, judgeID string, fn AssignmentFunc) (model.JudgeAssignment, error)
	Assignment(ctx context.Context, hackathonID string, round int, judgeID string) (model.JudgeAssignment, error)
	// Assignments lists a round ordered by judge id.
	Assignments(ctx context.Context, hackathonID string, round int) ([]model.JudgeAssignment, error)
	// ReplaceAssignments swaps every assignment of the round in one step.
	ReplaceAssignments(ctx context.Context, hackathonID string, round int, assignments []model.JudgeAssignment) error
	DeleteAssignment(ctx context.Context, hackathonID string, round int, judgeID string) error
}

// ScoreStore is the score ledger.
type ScoreStore interface {
	// UpsertScore writes the (submission, judge, round) entry, keeping the
	// id and created_at of an existing one, then recomputes the submission
	// aggregate with agg. guard, when non-nil, runs first. All three happen
	// in one atomic section.
	UpsertScore(ctx context.Context, entry model.ScoreEntry, guard ScoreGuard, agg AggregateFunc) (ScoreWrite, error)
	// Scores lists a submission's entries ordered by judge id.
	Scores(ctx context.Context, submissionID string) ([]model.ScoreEntry, error)
	// RebuildAggregate recomputes the cached aggregate from ledger entries.
	RebuildAggregate(ctx context.Context, submissionID string, agg AggregateFunc, at time.Time) (model.Submission, error)
}

// ProgressStore persists shortlisting outcomes.
type ProgressStore interface {
	RoundProgress(ctx context.Context, hackathonID string, round int) (model.RoundProgress, error)
	// ApplyShortlist overwrites the round progress and applies statuses in
	// one transaction. Nothing is written if any update fails.
	ApplyShortlist(ctx context.Context, progress model.RoundProgress, statuses map[string]model.SubmissionStatus, at time.Time) error
	// ToggleShortlist rewrites one submission status and its round progress
	// together.
	ToggleShortlist(ctx context.Context, submissionID string, fn ToggleFunc) (model.Submission, model.RoundProgress, error)
}

// Store bundles every judging store.
type Store interface {
	HackathonStore
	TeamStore
	SubmissionStore
	AssignmentStore
	ScoreStore
	ProgressStore

	Counts(ctx context.Context) (Counts, error)
	Close() error
}
