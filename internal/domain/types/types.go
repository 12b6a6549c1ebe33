// Package types contains the request and response shapes of the HTTP API.
package types

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
)

// ErrInvalidRequest marks a request body that fails shape validation.
var ErrInvalidRequest = errors.New("invalid request")

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrInvalidRequest, field)
}

func checkRound(round int) error {
	if round < 0 {
		return fmt.Errorf("%w: round_index must be >= 0", ErrInvalidRequest)
	}
	return nil
}

// TeamRequest is the body of PUT /hackathons/{id}/teams/{team}.
type TeamRequest struct {
	Members []string `json:"members"`
}

// Validate checks the request shape.
func (r TeamRequest) Validate() error {
	if len(r.Members) == 0 {
		return missing("members")
	}
	for _, m := range r.Members {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("%w: empty member id", ErrInvalidRequest)
		}
	}
	return nil
}

// SubmitRequest is the body of POST /submissions. The owner comes from the
// caller identity.
type SubmitRequest struct {
	HackathonID        string `json:"hackathon_id"`
	RoundIndex         int    `json:"round_index"`
	TeamID             string `json:"team_id,omitempty"`
	ProblemStatementID string `json:"problem_statement_id,omitempty"`
	Draft              bool   `json:"draft,omitempty"`
}

// Validate checks the request shape.
func (r SubmitRequest) Validate() error {
	if strings.TrimSpace(r.HackathonID) == "" {
		return missing("hackathon_id")
	}
	return checkRound(r.RoundIndex)
}

// AssignRequest is the body of POST /assign-judges.
type AssignRequest struct {
	HackathonID string         `json:"hackathon_id"`
	RoundIndex  int            `json:"round_index"`
	JudgeID     string         `json:"judge_id"`
	Targets     []model.Target `json:"targets"`
}

// Validate checks the request shape.
func (r AssignRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.HackathonID) == "":
		return missing("hackathon_id")
	case strings.TrimSpace(r.JudgeID) == "":
		return missing("judge_id")
	case len(r.Targets) == 0:
		return missing("targets")
	}
	return checkRound(r.RoundIndex)
}

// AutoDistributeRequest is the body of POST /auto-distribute. An empty
// judge list means every judge of the hackathon.
type AutoDistributeRequest struct {
	HackathonID string   `json:"hackathon_id"`
	RoundIndex  int      `json:"round_index"`
	JudgeIDs    []string `json:"judge_ids,omitempty"`
}

// Validate checks the request shape.
func (r AutoDistributeRequest) Validate() error {
	if strings.TrimSpace(r.HackathonID) == "" {
		return missing("hackathon_id")
	}
	return checkRound(r.RoundIndex)
}

// AssignmentStatusRequest is the body of POST /assignments/status.
type AssignmentStatusRequest struct {
	HackathonID string                 `json:"hackathon_id"`
	RoundIndex  int                    `json:"round_index"`
	JudgeID     string                 `json:"judge_id,omitempty"`
	Status      model.AssignmentStatus `json:"status"`
}

// Validate checks the request shape.
func (r AssignmentStatusRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.HackathonID) == "":
		return missing("hackathon_id")
	case r.Status == "":
		return missing("status")
	}
	return checkRound(r.RoundIndex)
}

// ScoreRequest is the body of POST /score. The judge comes from the caller
// identity.
type ScoreRequest struct {
	SubmissionID string             `json:"submission_id"`
	RoundIndex   int                `json:"round_index"`
	Scores       map[string]float64 `json:"scores"`
	Feedback     string             `json:"feedback,omitempty"`
}

// Validate checks the request shape. Range checks belong to the engine.
func (r ScoreRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.SubmissionID) == "":
		return missing("submission_id")
	case len(r.Scores) == 0:
		return missing("scores")
	}
	for name, v := range r.Scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: score for %s must be a finite number", ErrInvalidRequest, name)
		}
	}
	return checkRound(r.RoundIndex)
}

// Input converts the request into an engine score input.
func (r ScoreRequest) Input(judgeID string) judging.ScoreInput {
	return judging.ScoreInput{
		SubmissionID: r.SubmissionID,
		JudgeID:      judgeID,
		RoundIndex:   r.RoundIndex,
		Scores:       r.Scores,
		Feedback:     r.Feedback,
	}
}

// ShortlistRequest is the body of POST /shortlist.
type ShortlistRequest struct {
	HackathonID string              `json:"hackathon_id"`
	RoundIndex  int                 `json:"round_index"`
	Mode        model.ShortlistMode `json:"mode"`
	Param       float64             `json:"param"`
}

// Validate checks the request shape. Mode semantics belong to the engine.
func (r ShortlistRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.HackathonID) == "":
		return missing("hackathon_id")
	case r.Mode == "":
		return missing("mode")
	}
	return checkRound(r.RoundIndex)
}

// Engine converts the request for the shortlisting engine.
func (r ShortlistRequest) Engine() judging.ShortlistRequest {
	return judging.ShortlistRequest{
		HackathonID: r.HackathonID,
		RoundIndex:  r.RoundIndex,
		Mode:        r.Mode,
		Param:       r.Param,
	}
}

// ToggleRequest is the body of POST /toggle-shortlist.
type ToggleRequest struct {
	SubmissionID string `json:"submission_id"`
}

// Validate checks the request shape.
func (r ToggleRequest) Validate() error {
	if strings.TrimSpace(r.SubmissionID) == "" {
		return missing("submission_id")
	}
	return nil
}

// RebuildRequest is the body of POST /rebuild-aggregates.
type RebuildRequest struct {
	HackathonID string `json:"hackathon_id"`
	RoundIndex  int    `json:"round_index"`
}

// Validate checks the request shape.
func (r RebuildRequest) Validate() error {
	if strings.TrimSpace(r.HackathonID) == "" {
		return missing("hackathon_id")
	}
	return checkRound(r.RoundIndex)
}

// RebuildResponse reports how many rebuild jobs were queued.
type RebuildResponse struct {
	HackathonID string `json:"hackathon_id"`
	RoundIndex  int    `json:"round_index"`
	Enqueued    int    `json:"enqueued"`
}

// LeaderboardResponse is the body of GET /leaderboard.
type LeaderboardResponse struct {
	HackathonID string                     `json:"hackathon_id"`
	RoundIndex  int                        `json:"round_index"`
	Entries     []judging.LeaderboardEntry `json:"entries"`
}

// EligibilityResponse is the body of GET /eligibility.
type EligibilityResponse struct {
	HackathonID string `json:"hackathon_id"`
	RoundIndex  int    `json:"round_index"`
	SubjectID   string `json:"subject_id"`
	judging.Decision
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
