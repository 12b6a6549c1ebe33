package judging

import (
	"context"
	"fmt"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// Assign creates or replaces the judge's assignment for one round. A
// submission target with id "all" expands to every non-draft submission of
// the round. The assignment keeps its id and returns to pending.
func (e *Engine) Assign(ctx context.Context, judgeID, hackathonID string, round int, targets []model.Target) (model.JudgeAssignment, error) {
	const op = "assign"
	h, _, err := e.loadRound(ctx, op, hackathonID, round)
	if err != nil {
		return model.JudgeAssignment{}, err
	}
	if !h.HasJudge(judgeID) {
		return model.JudgeAssignment{}, newError(op, KindNotFound, fmt.Sprintf("judge %s not found", judgeID), nil)
	}
	if len(targets) == 0 {
		return model.JudgeAssignment{}, newError(op, KindInvalidInput, "at least one target is required", nil)
	}

	var out model.JudgeAssignment
	err = e.withRoundLock(ctx, op, hackathonID, round, func() error {
		resolved, err := e.resolveTargets(ctx, h, round, targets)
		if err != nil {
			return err
		}
		now := e.clock.Now()
		out, err = e.store.UpsertAssignment(ctx, hackathonID, round, judgeID,
			func(cur model.JudgeAssignment, exists bool) (model.JudgeAssignment, error) {
				id := e.newID()
				if exists {
					id = cur.ID
				}
				return model.JudgeAssignment{
					ID:          id,
					HackathonID: hackathonID,
					RoundIndex:  round,
					JudgeID:     judgeID,
					Targets:     resolved,
					Status:      model.AssignmentPending,
					UpdatedAt:   now,
				}, nil
			})
		return err
	})
	if err != nil {
		return model.JudgeAssignment{}, storeErr(op, err, "")
	}
	e.logger.Info(ctx, "judge assigned",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.String("judge_id", judgeID),
		logger.Int("targets", len(out.Targets)))
	return out, nil
}

// resolveTargets validates targets and expands the "all" wildcard.
func (e *Engine) resolveTargets(ctx context.Context, h model.Hackathon, round int, targets []model.Target) ([]model.Target, error) {
	const op = "assign"
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		if t.Kind == "" {
			t.Kind = model.TargetSubmission
		}
		if t.ID == "" {
			return nil, newError(op, KindInvalidInput, "target id must not be empty", nil)
		}
		switch t.Kind {
		case model.TargetSubmission:
			if t.ID == model.AllTargets {
				subs, err := e.store.Submissions(ctx, h.ID, round)
				if err != nil {
					return nil, storeErr(op, err, "")
				}
				for _, s := range subs {
					if s.Status != model.StatusDraft {
						out = append(out, model.Target{Kind: model.TargetSubmission, ID: s.ID})
					}
				}
				continue
			}
			s, err := e.store.Submission(ctx, t.ID)
			if err != nil || s.HackathonID != h.ID || s.RoundIndex != round {
				return nil, newError(op, KindInvalidTarget, fmt.Sprintf("submission %s is not part of round %d", t.ID, round), nil)
			}
		case model.TargetTeam:
			ok, err := e.store.IsTeam(ctx, h.ID, t.ID)
			if err != nil {
				return nil, storeErr(op, err, "")
			}
			if !ok {
				return nil, newError(op, KindInvalidTarget, fmt.Sprintf("team %s is not part of hackathon %s", t.ID, h.ID), nil)
			}
		case model.TargetProblem:
			if !h.HasProblemStatement(t.ID) {
				return nil, newError(op, KindInvalidTarget, fmt.Sprintf("problem statement %s is not part of hackathon %s", t.ID, h.ID), nil)
			}
		default:
			return nil, newError(op, KindInvalidInput, fmt.Sprintf("unknown target kind %q", t.Kind), nil)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, newError(op, KindInvalidInput, fmt.Sprintf("round %d has no submissions to assign", round), nil)
	}
	return model.SortTargets(out), nil
}

// Partition splits items across n buckets in order. The first len(items)%n
// buckets receive one extra item.
func Partition(items []string, n int) [][]string {
	if n <= 0 {
		return nil
	}
	out := make([][]string, n)
	base, extra := len(items)/n, len(items)%n
	pos := 0
	for i := range n {
		size := base
		if i < extra {
			size++
		}
		out[i] = append(make([]string, 0, size), items[pos:pos+size]...)
		pos += size
	}
	return out
}

// AutoDistribute partitions the round's non-draft submissions across judges
// (the hackathon's judge list when judgeIDs is empty) and replaces every
// assignment of the round. Judges whose target set is unchanged keep their
// status.
func (e *Engine) AutoDistribute(ctx context.Context, hackathonID string, round int, judgeIDs []string) ([]model.JudgeAssignment, error) {
	const op = "auto_distribute"
	h, _, err := e.loadRound(ctx, op, hackathonID, round)
	if err != nil {
		return nil, err
	}
	judges, err := pickJudges(h, judgeIDs)
	if err != nil {
		return nil, err
	}

	var out []model.JudgeAssignment
	err = e.withRoundLock(ctx, op, hackathonID, round, func() error {
		subs, err := e.store.Submissions(ctx, hackathonID, round)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(subs))
		for _, s := range subs {
			if s.Status != model.StatusDraft {
				ids = append(ids, s.ID)
			}
		}
		current, err := e.store.Assignments(ctx, hackathonID, round)
		if err != nil {
			return err
		}
		byJudge := make(map[string]model.JudgeAssignment, len(current))
		for _, a := range current {
			byJudge[a.JudgeID] = a
		}

		now := e.clock.Now()
		buckets := Partition(ids, len(judges))
		out = make([]model.JudgeAssignment, 0, len(judges))
		loads := make([]int, 0, len(judges))
		for i, judge := range judges {
			targets := make([]model.Target, 0, len(buckets[i]))
			for _, id := range buckets[i] {
				targets = append(targets, model.Target{Kind: model.TargetSubmission, ID: id})
			}
			targets = model.SortTargets(targets)
			a := model.JudgeAssignment{
				ID:          e.newID(),
				HackathonID: hackathonID,
				RoundIndex:  round,
				JudgeID:     judge,
				Targets:     targets,
				Status:      model.AssignmentPending,
				UpdatedAt:   now,
			}
			if prev, ok := byJudge[judge]; ok {
				a.ID = prev.ID
				if model.SameTargets(prev.Targets, targets) {
					a.Status = prev.Status
				}
			}
			out = append(out, a)
			loads = append(loads, len(targets))
		}
		if err := e.store.ReplaceAssignments(ctx, hackathonID, round, out); err != nil {
			return err
		}
		metrics.RecordAutoDistribute(loads)
		return nil
	})
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	e.logger.Info(ctx, "submissions distributed",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.Int("judges", len(judges)))
	return out, nil
}

func pickJudges(h model.Hackathon, judgeIDs []string) ([]string, error) {
	const op = "auto_distribute"
	if len(judgeIDs) == 0 {
		judgeIDs = h.Judges
	}
	out := make([]string, 0, len(judgeIDs))
	seen := make(map[string]struct{}, len(judgeIDs))
	for _, j := range judgeIDs {
		if !h.HasJudge(j) {
			return nil, newError(op, KindNotFound, fmt.Sprintf("judge %s not found", j), nil)
		}
		if _, dup := seen[j]; dup {
			continue
		}
		seen[j] = struct{}{}
		out = append(out, j)
	}
	if len(out) == 0 {
		return nil, newError(op, KindInvalidInput, "no judges to distribute to", nil)
	}
	return out, nil
}

// RespondToAssignment records the judge's accept or decline. Only the
// assigned judge may respond, and only while the assignment is pending.
// Repeating the current answer is a no-op.
func (e *Engine) RespondToAssignment(ctx context.Context, callerID, judgeID, hackathonID string, round int, status model.AssignmentStatus) (model.JudgeAssignment, error) {
	const op = "respond_assignment"
	if status != model.AssignmentAccepted && status != model.AssignmentDeclined {
		return model.JudgeAssignment{}, newError(op, KindInvalidInput, fmt.Sprintf("status must be accepted or declined, got %q", status), nil)
	}
	if judgeID == "" {
		judgeID = callerID
	}
	if callerID != judgeID {
		return model.JudgeAssignment{}, newError(op, KindNotAssigned, "only the assigned judge may respond", nil)
	}
	if _, _, err := e.loadRound(ctx, op, hackathonID, round); err != nil {
		return model.JudgeAssignment{}, err
	}
	now := e.clock.Now()
	a, err := e.store.UpsertAssignment(ctx, hackathonID, round, judgeID,
		func(cur model.JudgeAssignment, exists bool) (model.JudgeAssignment, error) {
			if !exists {
				return cur, newError(op, KindNotFound, fmt.Sprintf("judge %s has no assignment in round %d", judgeID, round), nil)
			}
			if cur.Status == status {
				return cur, nil
			}
			if cur.Status != model.AssignmentPending {
				return cur, newError(op, KindInvalidInput, fmt.Sprintf("assignment already %s", cur.Status), nil)
			}
			cur.Status = status
			cur.UpdatedAt = now
			return cur, nil
		})
	if err != nil {
		return model.JudgeAssignment{}, storeErr(op, err, "")
	}
	e.logger.Info(ctx, "assignment answered",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.String("judge_id", judgeID),
		logger.String("status", string(status)))
	return a, nil
}

// Assignments lists the assignments of one round.
func (e *Engine) Assignments(ctx context.Context, hackathonID string, round int) ([]model.JudgeAssignment, error) {
	const op = "assignments"
	if _, _, err := e.loadRound(ctx, op, hackathonID, round); err != nil {
		return nil, err
	}
	out, err := e.store.Assignments(ctx, hackathonID, round)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return out, nil
}

// Unassign removes a judge's assignment.
func (e *Engine) Unassign(ctx context.Context, judgeID, hackathonID string, round int) error {
	const op = "unassign"
	err := e.withRoundLock(ctx, op, hackathonID, round, func() error {
		return e.store.DeleteAssignment(ctx, hackathonID, round, judgeID)
	})
	if err != nil {
		return storeErr(op, err, fmt.Sprintf("judge %s has no assignment in round %d", judgeID, round))
	}
	return nil
}
