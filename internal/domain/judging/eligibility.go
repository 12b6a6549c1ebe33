package judging

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// Eligibility reasons.
const (
	ReasonFirstRound           = "first round"
	ReasonPreviousNotCompleted = "previous round not completed"
	ReasonNotShortlisted       = "not shortlisted"
	ReasonShortlisted          = "shortlisted"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Eligible  bool   `json:"eligible"`
	Reason    string `json:"reason"`
	MatchedBy string `json:"matched_by,omitempty"`
}

// subject is the participant or team being checked, with the participant's
// team resolved when there is one.
type subject struct {
	participantID string
	teamID        string
}

// eligibilityCheck is one way a subject can carry into the next round.
type eligibilityCheck struct {
	name string
	fn   func(ctx context.Context, e *Engine, progress model.RoundProgress, s subject) (bool, error)
}

// eligibilityChecks are tried in order; the first match wins.
var eligibilityChecks = []eligibilityCheck{
	{name: "participant", fn: participantListed},
	{name: "team", fn: teamListed},
	{name: "submission", fn: submissionListed},
}

func participantListed(_ context.Context, _ *Engine, p model.RoundProgress, s subject) (bool, error) {
	return p.HasParticipant(s.participantID), nil
}

func teamListed(_ context.Context, _ *Engine, p model.RoundProgress, s subject) (bool, error) {
	return p.HasTeam(s.teamID), nil
}

// submissionListed reads the status of the subject's latest submission in
// the previous round. It does not consult the progress record.
func submissionListed(ctx context.Context, e *Engine, p model.RoundProgress, s subject) (bool, error) {
	latest, err := e.store.LatestSubmission(ctx, p.HackathonID, p.RoundIndex, s.participantID, s.teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return latest.Status == model.StatusShortlisted, nil
}

// IsEligible decides whether a participant or team may enter round. Round
// 0 is open to everyone; later rounds need the previous round closed and
// the subject carried by its shortlist.
func (e *Engine) IsEligible(ctx context.Context, hackathonID string, round int, subjectID string) (Decision, error) {
	const op = "is_eligible"
	if subjectID == "" {
		return Decision{}, newError(op, KindInvalidInput, "participant or team id is required", nil)
	}
	h, _, err := e.loadRound(ctx, op, hackathonID, round)
	if err != nil {
		return Decision{}, err
	}
	d, err := e.decide(ctx, h, round, subjectID)
	if err != nil {
		return Decision{}, storeErr(op, err, "")
	}
	metrics.RecordEligibilityCheck(d.Eligible, d.MatchedBy)
	e.logger.Debug(ctx, "eligibility checked",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.String("subject", subjectID),
		logger.Bool("eligible", d.Eligible),
		logger.String("reason", d.Reason))
	return d, nil
}

func (e *Engine) decide(ctx context.Context, h model.Hackathon, round int, subjectID string) (Decision, error) {
	if round == 0 {
		return Decision{Eligible: true, Reason: ReasonFirstRound, MatchedBy: "first_round"}, nil
	}
	prev, _ := h.Round(round - 1)
	if !prev.Closed(e.clock.Now()) {
		return Decision{Reason: ReasonPreviousNotCompleted}, nil
	}
	// A missing record leaves the set checks empty; submission status is
	// still consulted.
	p, err := e.store.RoundProgress(ctx, h.ID, prev.Index)
	if errors.Is(err, repository.ErrNotFound) {
		p, err = model.RoundProgress{HackathonID: h.ID, RoundIndex: prev.Index}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	s, err := e.resolveSubject(ctx, h.ID, subjectID)
	if err != nil {
		return Decision{}, err
	}
	for _, c := range eligibilityChecks {
		ok, err := c.fn(ctx, e, p, s)
		if err != nil {
			return Decision{}, fmt.Errorf("%s check: %w", c.name, err)
		}
		if ok {
			return Decision{Eligible: true, Reason: ReasonShortlisted, MatchedBy: c.name}, nil
		}
	}
	return Decision{Reason: ReasonNotShortlisted}, nil
}

// resolveSubject treats id as a team when one exists with that id and as a
// participant otherwise.
func (e *Engine) resolveSubject(ctx context.Context, hackathonID, id string) (subject, error) {
	isTeam, err := e.store.IsTeam(ctx, hackathonID, id)
	if err != nil {
		return subject{}, err
	}
	if isTeam {
		return subject{teamID: id}, nil
	}
	team, err := e.store.TeamOf(ctx, hackathonID, id)
	if err != nil {
		return subject{}, err
	}
	return subject{participantID: id, teamID: team}, nil
}
