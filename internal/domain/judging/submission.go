package judging

import (
	"context"
	"fmt"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
)

// SubmitInput creates a submission. TeamID may be left empty; the owner's
// registered team is used either way.
type SubmitInput struct {
	HackathonID        string `json:"hackathon_id"`
	RoundIndex         int    `json:"round_index"`
	OwnerID            string `json:"owner_id"`
	TeamID             string `json:"team_id,omitempty"`
	ProblemStatementID string `json:"problem_statement_id,omitempty"`
	Draft              bool   `json:"draft,omitempty"`
}

// Submit creates a submission in an open round for an eligible owner.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (model.Submission, error) {
	const op = "submit"
	if in.OwnerID == "" {
		return model.Submission{}, newError(op, KindInvalidInput, "owner id is required", nil)
	}
	h, r, err := e.loadRound(ctx, op, in.HackathonID, in.RoundIndex)
	if err != nil {
		return model.Submission{}, err
	}
	now := e.clock.Now()
	if !r.Open(now) {
		return model.Submission{}, newError(op, KindRoundClosed, fmt.Sprintf("round %d is not accepting submissions", r.Index), nil)
	}
	if in.ProblemStatementID != "" && !h.HasProblemStatement(in.ProblemStatementID) {
		return model.Submission{}, newError(op, KindInvalidTarget, fmt.Sprintf("problem statement %s is not part of hackathon %s", in.ProblemStatementID, h.ID), nil)
	}

	team, err := e.store.TeamOf(ctx, h.ID, in.OwnerID)
	if err != nil {
		return model.Submission{}, storeErr(op, err, "")
	}
	if in.TeamID != "" && in.TeamID != team {
		return model.Submission{}, newError(op, KindInvalidTarget, fmt.Sprintf("%s is not a member of team %s", in.OwnerID, in.TeamID), nil)
	}
	if team == "" && !h.AllowIndividual {
		return model.Submission{}, newError(op, KindNotEligible, "this hackathon only accepts team submissions", nil)
	}

	d, err := e.decide(ctx, h, in.RoundIndex, in.OwnerID)
	if err != nil {
		return model.Submission{}, storeErr(op, err, "")
	}
	if !d.Eligible {
		return model.Submission{}, newError(op, KindNotEligible, d.Reason, nil)
	}

	status := model.StatusSubmitted
	if in.Draft {
		status = model.StatusDraft
	}
	sub := model.Submission{
		ID:                 e.newID(),
		HackathonID:        h.ID,
		RoundIndex:         in.RoundIndex,
		TeamID:             team,
		OwnerID:            in.OwnerID,
		ProblemStatementID: in.ProblemStatementID,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.CreateSubmission(ctx, sub); err != nil {
		return model.Submission{}, storeErr(op, err, "")
	}
	e.logger.Info(ctx, "submission created",
		logger.String("hackathon_id", h.ID),
		logger.Int("round", in.RoundIndex),
		logger.String("submission_id", sub.ID),
		logger.String("status", string(status)))
	return sub, nil
}

// Finalize moves the caller's draft to submitted while the round is open.
func (e *Engine) Finalize(ctx context.Context, submissionID, callerID string) (model.Submission, error) {
	const op = "finalize"
	cur, err := e.store.Submission(ctx, submissionID)
	if err != nil {
		return model.Submission{}, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}
	if cur.OwnerID != callerID {
		return model.Submission{}, newError(op, KindNotEligible, "only the owner may finalize a submission", nil)
	}
	_, r, err := e.loadRound(ctx, op, cur.HackathonID, cur.RoundIndex)
	if err != nil {
		return model.Submission{}, err
	}
	now := e.clock.Now()
	if !r.Open(now) {
		return model.Submission{}, newError(op, KindRoundClosed, fmt.Sprintf("round %d is not accepting submissions", r.Index), nil)
	}
	sub, err := e.store.UpdateSubmission(ctx, submissionID, func(s model.Submission) (model.Submission, error) {
		next, err := s.Apply(model.StatusSubmitted)
		if err != nil {
			return s, newError(op, KindInvalidInput, fmt.Sprintf("cannot finalize a %s submission", s.Status), err)
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return model.Submission{}, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}
	e.logger.Info(ctx, "submission finalized", logger.String("submission_id", submissionID))
	return sub, nil
}

// Submission returns one submission.
func (e *Engine) Submission(ctx context.Context, id string) (model.Submission, error) {
	sub, err := e.store.Submission(ctx, id)
	if err != nil {
		return model.Submission{}, storeErr("submission", err, fmt.Sprintf("submission %s not found", id))
	}
	return sub, nil
}

// Submissions lists a round's submissions in creation order.
func (e *Engine) Submissions(ctx context.Context, hackathonID string, round int) ([]model.Submission, error) {
	const op = "submissions"
	if _, _, err := e.loadRound(ctx, op, hackathonID, round); err != nil {
		return nil, err
	}
	subs, err := e.store.Submissions(ctx, hackathonID, round)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return subs, nil
}
