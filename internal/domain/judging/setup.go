package judging

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
)

// ValidateHackathon checks a hackathon configuration before it is stored.
func ValidateHackathon(h model.Hackathon) error {
	const op = "validate_hackathon"
	if h.ID == "" {
		return newError(op, KindInvalidInput, "hackathon id is required", nil)
	}
	if len(h.Rounds) == 0 {
		return newError(op, KindInvalidInput, "at least one round is required", nil)
	}
	seenJudge := make(map[string]struct{}, len(h.Judges))
	for _, j := range h.Judges {
		if j == "" {
			return newError(op, KindInvalidInput, "judge id must not be empty", nil)
		}
		if _, dup := seenJudge[j]; dup {
			return newError(op, KindInvalidInput, fmt.Sprintf("duplicate judge %s", j), nil)
		}
		seenJudge[j] = struct{}{}
	}
	for i, r := range h.Rounds {
		if r.Index != i {
			return newError(op, KindInvalidInput, fmt.Sprintf("round indices must be contiguous from 0, got %d at position %d", r.Index, i), nil)
		}
		if !r.OpensAt.Before(r.ClosesAt) {
			return newError(op, KindInvalidInput, fmt.Sprintf("round %d must open before it closes", i), nil)
		}
		switch r.AssignmentMode {
		case "", model.AssignmentManual, model.AssignmentAuto:
		default:
			return newError(op, KindInvalidInput, fmt.Sprintf("round %d has unknown assignment mode %q", i, r.AssignmentMode), nil)
		}
		if err := validateCriteria(i, r.Criteria); err != nil {
			return err
		}
	}
	return nil
}

func validateCriteria(round int, criteria []model.Criterion) error {
	const op = "validate_hackathon"
	if len(criteria) == 0 {
		return newError(op, KindInvalidInput, fmt.Sprintf("round %d needs at least one criterion", round), nil)
	}
	names := make(map[string]struct{}, len(criteria))
	for _, c := range criteria {
		if c.Name == "" {
			return newError(op, KindInvalidInput, fmt.Sprintf("round %d has a criterion without a name", round), nil)
		}
		if _, dup := names[c.Name]; dup {
			return newError(op, KindInvalidInput, fmt.Sprintf("round %d repeats criterion %s", round, c.Name), nil)
		}
		names[c.Name] = struct{}{}
		if !(c.MaxScore > 0) || math.IsInf(c.MaxScore, 0) {
			return newError(op, KindInvalidInput, fmt.Sprintf("criterion %s needs a positive max score", c.Name), nil)
		}
		if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
			return newError(op, KindInvalidInput, fmt.Sprintf("criterion %s needs a positive weight", c.Name), nil)
		}
	}
	return nil
}

// ConfigureHackathon validates and stores a hackathon. Rounds without an
// assignment mode default to manual.
func (e *Engine) ConfigureHackathon(ctx context.Context, h model.Hackathon) (model.Hackathon, error) {
	const op = "configure_hackathon"
	if err := ValidateHackathon(h); err != nil {
		return model.Hackathon{}, err
	}
	rounds := make([]model.Round, len(h.Rounds))
	for i, r := range h.Rounds {
		if r.AssignmentMode == "" {
			r.AssignmentMode = model.AssignmentManual
		}
		r.OpensAt, r.ClosesAt = r.OpensAt.UTC(), r.ClosesAt.UTC()
		rounds[i] = r
	}
	h.Rounds = rounds
	if err := e.store.PutHackathon(ctx, h); err != nil {
		return model.Hackathon{}, storeErr(op, err, "")
	}
	e.logger.Info(ctx, "hackathon configured",
		logger.String("hackathon_id", h.ID),
		logger.Int("rounds", len(h.Rounds)),
		logger.Int("judges", len(h.Judges)))
	return h, nil
}

// Hackathon returns a stored hackathon.
func (e *Engine) Hackathon(ctx context.Context, id string) (model.Hackathon, error) {
	h, err := e.store.Hackathon(ctx, id)
	if err != nil {
		return model.Hackathon{}, storeErr("hackathon", err, fmt.Sprintf("hackathon %s not found", id))
	}
	return h, nil
}

// Criteria returns the scoring criteria of one round.
func (e *Engine) Criteria(ctx context.Context, hackathonID string, round int) ([]model.Criterion, error) {
	_, r, err := e.loadRound(ctx, "criteria", hackathonID, round)
	if err != nil {
		return nil, err
	}
	return r.Criteria, nil
}

// RegisterTeam stores a team for an existing hackathon.
func (e *Engine) RegisterTeam(ctx context.Context, team model.Team) error {
	const op = "register_team"
	if team.ID == "" {
		return newError(op, KindInvalidInput, "team id is required", nil)
	}
	if len(team.Members) == 0 {
		return newError(op, KindInvalidInput, "team needs at least one member", nil)
	}
	if _, err := e.Hackathon(ctx, team.HackathonID); err != nil {
		return err
	}
	if err := e.store.PutTeam(ctx, team); err != nil {
		return storeErr(op, err, "")
	}
	e.logger.Debug(ctx, "team registered",
		logger.String("hackathon_id", team.HackathonID),
		logger.String("team_id", team.ID),
		logger.Int("members", len(team.Members)))
	return nil
}
