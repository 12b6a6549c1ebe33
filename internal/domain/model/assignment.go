package model

import (
	"slices"
	"time"
)

// TargetKind identifies what a judge assignment target refers to.
type TargetKind string

// Target kinds.
const (
	TargetSubmission TargetKind = "submission"
	TargetTeam       TargetKind = "team"
	TargetProblem    TargetKind = "problem"
)

// AllTargets expands to every non-draft submission of the round.
const AllTargets = "all"

// Target is one item a judge must evaluate.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// AssignmentStatus is the judge's response to an assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentDeclined AssignmentStatus = "declined"
)

// JudgeAssignment binds a judge to targets within one (hackathon, round).
type JudgeAssignment struct {
	ID          string           `json:"id"`
	HackathonID string           `json:"hackathon_id"`
	RoundIndex  int              `json:"round_index"`
	JudgeID     string           `json:"judge_id"`
	Targets     []Target         `json:"targets"`
	Status      AssignmentStatus `json:"status"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Covers reports whether the assignment reaches s through its id, team or problem statement.
func (a JudgeAssignment) Covers(s Submission) bool {
	for _, t := range a.Targets {
		switch t.Kind {
		case TargetSubmission:
			if t.ID == s.ID {
				return true
			}
		case TargetTeam:
			if s.TeamID != "" && t.ID == s.TeamID {
				return true
			}
		case TargetProblem:
			if s.ProblemStatementID != "" && t.ID == s.ProblemStatementID {
				return true
			}
		}
	}
	return false
}

// SameTargets reports whether both target lists hold the same set.
func SameTargets(a, b []Target) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := SortTargets(a), SortTargets(b)
	return slices.Equal(x, y)
}

// SortTargets returns a sorted, de-duplicated copy of targets.
func SortTargets(targets []Target) []Target {
	out := slices.Clone(targets)
	slices.SortFunc(out, func(a, b Target) int {
		if a.Kind != b.Kind {
			if a.Kind < b.Kind {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return slices.Compact(out)
}
