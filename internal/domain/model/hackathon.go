// Package model contains domain models passed between layers.
package model

import "time"

// AssignmentMode describes how judges receive their targets in a round.
type AssignmentMode string

// Assignment modes.
const (
	AssignmentManual AssignmentMode = "manual"
	AssignmentAuto   AssignmentMode = "auto"
)

// Criterion is one named scoring dimension of a round.
type Criterion struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
	Weight   float64 `json:"weight"`
}

// Round is one ordered judging phase of a hackathon.
type Round struct {
	Index          int            `json:"index"`
	Kind           string         `json:"kind"`
	OpensAt        time.Time      `json:"opens_at"`
	ClosesAt       time.Time      `json:"closes_at"`
	Criteria       []Criterion    `json:"criteria"`
	AssignmentMode AssignmentMode `json:"assignment_mode"`
}

// Open reports whether now falls inside [OpensAt, ClosesAt).
func (r Round) Open(now time.Time) bool {
	return !now.Before(r.OpensAt) && now.Before(r.ClosesAt)
}

// Closed reports whether the round window has ended at now.
func (r Round) Closed(now time.Time) bool {
	return !now.Before(r.ClosesAt)
}

// Criterion returns the criterion with the given name.
func (r Round) Criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Hackathon holds the judging configuration of one event.
type Hackathon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// AllowIndividual admits teamless participants.
	AllowIndividual bool `json:"allow_individual"`
	// UnrestrictedJudging lets any configured judge score any submission.
	UnrestrictedJudging bool `json:"unrestricted_judging"`
	// ForbidPostShortlistScoring rejects scores once a round is shortlisted.
	ForbidPostShortlistScoring bool     `json:"forbid_post_shortlist_scoring"`
	Judges                     []string `json:"judges"`
	ProblemStatements          []string `json:"problem_statements"`
	Rounds                     []Round  `json:"rounds"`
}

// Round returns the round with the given index.
func (h Hackathon) Round(index int) (Round, bool) {
	if index < 0 || index >= len(h.Rounds) {
		return Round{}, false
	}
	return h.Rounds[index], true
}

// HasJudge reports whether judgeID is configured for the hackathon.
func (h Hackathon) HasJudge(judgeID string) bool {
	for _, j := range h.Judges {
		if j == judgeID {
			return true
		}
	}
	return false
}

// HasProblemStatement reports whether id is one of the hackathon's problem statements.
func (h Hackathon) HasProblemStatement(id string) bool {
	for _, p := range h.ProblemStatements {
		if p == id {
			return true
		}
	}
	return false
}

// Team is a group of participants registered for a hackathon.
type Team struct {
	ID          string   `json:"id"`
	HackathonID string   `json:"hackathon_id"`
	Members     []string `json:"members"`
}
