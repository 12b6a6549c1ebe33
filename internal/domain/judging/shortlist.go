package judging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// ShortlistRequest asks for a round to be shortlisted.
// Param is N for top_n and the minimum aggregate for threshold.
type ShortlistRequest struct {
	HackathonID string              `json:"hackathon_id"`
	RoundIndex  int                 `json:"round_index"`
	Mode        model.ShortlistMode `json:"mode"`
	Param       float64             `json:"param"`
}

// ShortlistResult reports the outcome of a shortlist run.
type ShortlistResult struct {
	Progress  model.RoundProgress `json:"progress"`
	Requested int                 `json:"requested"`
	Selected  int                 `json:"selected"`
	Rejected  int                 `json:"rejected"`
}

func validateShortlist(req ShortlistRequest) error {
	const op = "shortlist"
	if math.IsNaN(req.Param) || math.IsInf(req.Param, 0) {
		return newError(op, KindInvalidInput, "param must be a finite number", nil)
	}
	switch req.Mode {
	case model.ShortlistTopN:
		if req.Param < 0 || req.Param != math.Trunc(req.Param) {
			return newError(op, KindInvalidInput, "top_n param must be a non-negative integer", nil)
		}
	case model.ShortlistThreshold:
	default:
		return newError(op, KindInvalidInput, fmt.Sprintf("unknown shortlist mode %q", req.Mode), nil)
	}
	return nil
}

// selectEntries picks the shortlisted prefix of a ranked leaderboard.
// Unscored entries never pass a threshold.
func selectEntries(ranked []LeaderboardEntry, mode model.ShortlistMode, param float64) []LeaderboardEntry {
	switch mode {
	case model.ShortlistTopN:
		n := int(param)
		if n > len(ranked) {
			n = len(ranked)
		}
		return ranked[:n]
	case model.ShortlistThreshold:
		out := make([]LeaderboardEntry, 0, len(ranked))
		for _, l := range ranked {
			if l.Scored() && l.AggregateScore >= param {
				out = append(out, l)
			}
		}
		return out
	}
	return nil
}

// Shortlist selects submissions from the round leaderboard, marks the rest
// rejected and rewrites the round progress in one store write. Running it
// again replaces the previous outcome.
func (e *Engine) Shortlist(ctx context.Context, req ShortlistRequest) (ShortlistResult, error) {
	const op = "shortlist"
	if err := validateShortlist(req); err != nil {
		return ShortlistResult{}, err
	}
	h, _, err := e.loadRound(ctx, op, req.HackathonID, req.RoundIndex)
	if err != nil {
		return ShortlistResult{}, err
	}

	var res ShortlistResult
	err = e.withRoundLock(ctx, op, req.HackathonID, req.RoundIndex, func() error {
		subs, err := e.store.Submissions(ctx, req.HackathonID, req.RoundIndex)
		if err != nil {
			return err
		}
		selected := selectEntries(RankSubmissions(subs), req.Mode, req.Param)
		picked := make(map[string]struct{}, len(selected))
		for _, l := range selected {
			picked[l.SubmissionID] = struct{}{}
		}

		statuses := make(map[string]model.SubmissionStatus)
		var ids, teams, participants []string
		rejected := 0
		for _, s := range subs {
			if s.Status == model.StatusDraft {
				continue
			}
			target := model.StatusRejected
			if _, ok := picked[s.ID]; ok {
				target = model.StatusShortlisted
				ids = append(ids, s.ID)
				if s.TeamID != "" {
					teams = append(teams, s.TeamID)
				} else if h.AllowIndividual {
					participants = append(participants, s.OwnerID)
				}
			} else {
				rejected++
			}
			if s.Status == target {
				continue
			}
			if err := model.Transition(s.Status, target); err != nil {
				return newError(op, KindInternal, err.Error(), err)
			}
			statuses[s.ID] = target
		}

		now := e.clock.Now()
		progress := model.RoundProgress{
			HackathonID:            req.HackathonID,
			RoundIndex:             req.RoundIndex,
			ShortlistedSubmissions: model.NewSet(ids...),
			ShortlistedTeams:       model.NewSet(teams...),
			EligibleParticipants:   model.NewSet(participants...),
			RoundCompleted:         true,
			ShortlistedAt:          now,
			Mode:                   req.Mode,
			Param:                  req.Param,
		}
		if err := e.store.ApplyShortlist(ctx, progress, statuses, now); err != nil {
			return err
		}
		res = ShortlistResult{
			Progress:  progress,
			Requested: int(req.Param),
			Selected:  len(selected),
			Rejected:  rejected,
		}
		if req.Mode == model.ShortlistThreshold {
			res.Requested = len(selected)
		}
		return nil
	})
	if err != nil {
		return ShortlistResult{}, storeErr(op, err, "")
	}

	metrics.RecordShortlistRun(string(req.Mode), res.Selected)
	e.logger.Info(ctx, "round shortlisted",
		logger.String("hackathon_id", req.HackathonID),
		logger.Int("round", req.RoundIndex),
		logger.String("mode", string(req.Mode)),
		logger.Float64("param", req.Param),
		logger.Int("selected", res.Selected),
		logger.Int("rejected", res.Rejected))
	return res, nil
}

// ToggleResult is the submission and round progress after a toggle.
type ToggleResult struct {
	Submission model.Submission    `json:"submission"`
	Progress   model.RoundProgress `json:"progress"`
}

// ToggleShortlist flips one submission between shortlisted and rejected
// and patches the round progress sets to match. A team or participant
// leaves the sets only when none of its other submissions stays shortlisted.
func (e *Engine) ToggleShortlist(ctx context.Context, submissionID string) (ToggleResult, error) {
	const op = "toggle_shortlist"
	sub, err := e.store.Submission(ctx, submissionID)
	if err != nil {
		return ToggleResult{}, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}
	h, err := e.Hackathon(ctx, sub.HackathonID)
	if err != nil {
		return ToggleResult{}, err
	}

	var res ToggleResult
	err = e.withRoundLock(ctx, op, sub.HackathonID, sub.RoundIndex, func() error {
		now := e.clock.Now()
		s, p, err := e.store.ToggleShortlist(ctx, submissionID,
			func(cur model.Submission, p model.RoundProgress, found bool, round []model.Submission) (model.Submission, model.RoundProgress, error) {
				return toggle(h, cur, p, found, round, now)
			})
		if err != nil {
			return err
		}
		res = ToggleResult{Submission: s, Progress: p}
		return nil
	})
	if err != nil {
		return ToggleResult{}, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}

	metrics.RecordShortlistToggle(string(res.Submission.Status))
	e.logger.Info(ctx, "shortlist toggled",
		logger.String("submission_id", submissionID),
		logger.String("status", string(res.Submission.Status)))
	return res, nil
}

func toggle(h model.Hackathon, cur model.Submission, p model.RoundProgress, found bool, round []model.Submission, now time.Time) (model.Submission, model.RoundProgress, error) {
	const op = "toggle_shortlist"
	if !found {
		p = model.RoundProgress{
			HackathonID: cur.HackathonID,
			RoundIndex:  cur.RoundIndex,
			Mode:        model.ShortlistManual,
		}
	}
	target := model.StatusShortlisted
	if cur.Status == model.StatusShortlisted {
		target = model.StatusRejected
	}
	next, err := cur.Apply(target)
	if err != nil {
		return cur, p, newError(op, KindInvalidInput, fmt.Sprintf("cannot toggle a %s submission", cur.Status), err)
	}
	next.UpdatedAt = now

	individual := next.TeamID == "" && h.AllowIndividual
	if target == model.StatusShortlisted {
		p.ShortlistedSubmissions = model.AddToSet(p.ShortlistedSubmissions, next.ID)
		if next.TeamID != "" {
			p.ShortlistedTeams = model.AddToSet(p.ShortlistedTeams, next.TeamID)
		} else if individual {
			p.EligibleParticipants = model.AddToSet(p.EligibleParticipants, next.OwnerID)
		}
	} else {
		p.ShortlistedSubmissions = model.RemoveFromSet(p.ShortlistedSubmissions, next.ID)
		teamHeld, ownerHeld := false, false
		for _, s := range round {
			if s.ID == next.ID || s.Status != model.StatusShortlisted {
				continue
			}
			if next.TeamID != "" && s.TeamID == next.TeamID {
				teamHeld = true
			}
			if s.TeamID == "" && s.OwnerID == next.OwnerID {
				ownerHeld = true
			}
		}
		if next.TeamID != "" && !teamHeld {
			p.ShortlistedTeams = model.RemoveFromSet(p.ShortlistedTeams, next.TeamID)
		}
		if individual && !ownerHeld {
			p.EligibleParticipants = model.RemoveFromSet(p.EligibleParticipants, next.OwnerID)
		}
	}
	p.ShortlistedSubmissions = nonNil(p.ShortlistedSubmissions)
	p.ShortlistedTeams = nonNil(p.ShortlistedTeams)
	p.EligibleParticipants = nonNil(p.EligibleParticipants)
	return next, p, nil
}

func nonNil(set []string) []string {
	if set == nil {
		return []string{}
	}
	return set
}

// RoundProgress returns the stored shortlisting outcome of a round.
func (e *Engine) RoundProgress(ctx context.Context, hackathonID string, round int) (model.RoundProgress, error) {
	const op = "round_progress"
	if _, _, err := e.loadRound(ctx, op, hackathonID, round); err != nil {
		return model.RoundProgress{}, err
	}
	p, err := e.store.RoundProgress(ctx, hackathonID, round)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RoundProgress{}, newError(op, KindNotFound, fmt.Sprintf("round %d has not been shortlisted", round), err)
	}
	if err != nil {
		return model.RoundProgress{}, storeErr(op, err, "")
	}
	return p, nil
}
