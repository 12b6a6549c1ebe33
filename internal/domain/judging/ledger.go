package judging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// ScoreInput is one judge's per-criterion scores for a submission.
type ScoreInput struct {
	SubmissionID string             `json:"submission_id"`
	JudgeID      string             `json:"judge_id"`
	RoundIndex   int                `json:"round_index"`
	Scores       map[string]float64 `json:"scores"`
	Feedback     string             `json:"feedback,omitempty"`
}

// ScoreResult is the outcome of a score write.
type ScoreResult struct {
	Entry          model.ScoreEntry `json:"entry"`
	AggregateScore float64          `json:"aggregate_score"`
	ScoreCount     int              `json:"score_count"`
	Created        bool             `json:"created"`
}

// SubmitScore validates and records a judge's score, then recomputes the
// submission aggregate in the same store write. A second submission by the
// same judge for the same round replaces the first.
func (e *Engine) SubmitScore(ctx context.Context, in ScoreInput) (ScoreResult, error) {
	const op = "submit_score"
	now := e.clock.Now()

	entry, guard, err := e.validateScore(ctx, in, now)
	if err != nil {
		kind := KindOf(err)
		metrics.RecordScoreRejected(string(kind))
		e.logger.Debug(ctx, "score rejected",
			logger.String("submission_id", in.SubmissionID),
			logger.String("judge_id", in.JudgeID),
			logger.String("kind", string(kind)),
			logger.Error(err))
		return ScoreResult{}, err
	}

	w, err := e.upsertWithRetry(ctx, entry, guard)
	var je *Error
	if errors.As(err, &je) {
		metrics.RecordScoreRejected(string(je.Kind))
		e.logger.Debug(ctx, "score rejected at write",
			logger.String("submission_id", in.SubmissionID),
			logger.String("judge_id", in.JudgeID),
			logger.String("kind", string(je.Kind)))
		return ScoreResult{}, err
	}
	if err != nil {
		metrics.RecordScoreWrite("error")
		e.logger.Error(ctx, "score write failed",
			logger.String("submission_id", in.SubmissionID),
			logger.String("judge_id", in.JudgeID),
			logger.Error(err))
		return ScoreResult{}, storeErr(op, err, fmt.Sprintf("submission %s not found", in.SubmissionID))
	}
	outcome := "updated"
	if w.Created {
		outcome = "created"
	}
	metrics.RecordScoreWrite(outcome)
	e.logger.Info(ctx, "score recorded",
		logger.String("submission_id", w.Entry.SubmissionID),
		logger.String("judge_id", w.Entry.JudgeID),
		logger.Float64("total", w.Entry.Total),
		logger.Float64("aggregate", w.Submission.AggregateScore),
		logger.String("outcome", outcome))
	return ScoreResult{
		Entry:          w.Entry,
		AggregateScore: w.Submission.AggregateScore,
		ScoreCount:     w.Submission.ScoreCount,
		Created:        w.Created,
	}, nil
}

// validateScore runs the checks in a fixed order: existence, target,
// round window, finalization, assignment and finally score range. The
// returned guard repeats the finalization and assignment checks inside the
// store write.
func (e *Engine) validateScore(ctx context.Context, in ScoreInput, now time.Time) (model.ScoreEntry, repository.ScoreGuard, error) {
	const op = "submit_score"
	sub, err := e.store.Submission(ctx, in.SubmissionID)
	if err != nil {
		return model.ScoreEntry{}, nil, storeErr(op, err, fmt.Sprintf("submission %s not found", in.SubmissionID))
	}
	h, round, err := e.loadRound(ctx, op, sub.HackathonID, in.RoundIndex)
	if err != nil {
		return model.ScoreEntry{}, nil, err
	}
	if !h.HasJudge(in.JudgeID) {
		return model.ScoreEntry{}, nil, newError(op, KindNotFound, fmt.Sprintf("judge %s not found", in.JudgeID), nil)
	}

	if sub.RoundIndex != in.RoundIndex {
		return model.ScoreEntry{}, nil, newError(op, KindInvalidTarget, fmt.Sprintf("submission %s belongs to round %d", sub.ID, sub.RoundIndex), nil)
	}
	if sub.Status == model.StatusDraft {
		return model.ScoreEntry{}, nil, newError(op, KindInvalidTarget, "draft submissions cannot be scored", nil)
	}

	if !round.Open(now) {
		return model.ScoreEntry{}, nil, newError(op, KindRoundClosed, fmt.Sprintf("round %d is not open for scoring", round.Index), nil)
	}

	state := repository.ScoreState{Submission: sub}
	if h.ForbidPostShortlistScoring {
		p, err := e.store.RoundProgress(ctx, h.ID, round.Index)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.ScoreEntry{}, nil, storeErr(op, err, "")
		}
		state.Progress, state.HasProgress = p, err == nil
	}
	if !h.UnrestrictedJudging {
		a, err := e.store.Assignment(ctx, h.ID, round.Index, in.JudgeID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.ScoreEntry{}, nil, storeErr(op, err, "")
		}
		state.Assignment, state.HasAssignment = a, err == nil
	}
	if err := standing(h, round, in.JudgeID, state); err != nil {
		return model.ScoreEntry{}, nil, err
	}

	total, err := e.scorer.JudgeTotal(round.Criteria, in.Scores)
	if err != nil {
		return model.ScoreEntry{}, nil, newError(op, KindOutOfRange, err.Error(), err)
	}

	scores := make(map[string]float64, len(in.Scores))
	for k, v := range in.Scores {
		scores[k] = v
	}
	guard := func(st repository.ScoreState) error {
		return standing(h, round, in.JudgeID, st)
	}
	return model.ScoreEntry{
		ID:           e.newID(),
		SubmissionID: sub.ID,
		JudgeID:      in.JudgeID,
		RoundIndex:   in.RoundIndex,
		Scores:       scores,
		Feedback:     in.Feedback,
		Total:        total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, guard, nil
}

// standing reports whether judgeID may still score the submission in st:
// the round must not be finalized and the judge must hold an accepted
// assignment covering it.
func standing(h model.Hackathon, round model.Round, judgeID string, st repository.ScoreState) error {
	const op = "submit_score"
	if h.ForbidPostShortlistScoring && st.HasProgress && st.Progress.RoundCompleted {
		return newError(op, KindAlreadyFinalized, fmt.Sprintf("round %d has already been shortlisted", round.Index), nil)
	}
	if h.UnrestrictedJudging {
		return nil
	}
	a := st.Assignment
	if !st.HasAssignment || a.Status != model.AssignmentAccepted || !a.Covers(st.Submission) {
		return newError(op, KindNotAssigned, fmt.Sprintf("judge %s holds no accepted assignment covering submission %s", judgeID, st.Submission.ID), nil)
	}
	return nil
}

// upsertWithRetry retries a transient store failure once after the backoff.
func (e *Engine) upsertWithRetry(ctx context.Context, entry model.ScoreEntry, guard repository.ScoreGuard) (repository.ScoreWrite, error) {
	w, err := e.store.UpsertScore(ctx, entry, guard, e.aggregate)
	if err == nil || !errors.Is(err, repository.ErrTransient) {
		return w, err
	}
	metrics.RecordScoreRetry()
	e.logger.Warn(ctx, "transient score write failure, retrying",
		logger.String("submission_id", entry.SubmissionID),
		logger.Duration("backoff", e.retryBackoff),
		logger.Error(err))

	t := time.NewTimer(e.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return repository.ScoreWrite{}, ctx.Err()
	case <-t.C:
	}
	return e.store.UpsertScore(ctx, entry, guard, e.aggregate)
}

// Scores lists every judge's entry for a submission.
func (e *Engine) Scores(ctx context.Context, submissionID string) ([]model.ScoreEntry, error) {
	const op = "scores"
	if _, err := e.store.Submission(ctx, submissionID); err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}
	out, err := e.store.Scores(ctx, submissionID)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return out, nil
}

// Rebuild recomputes a submission aggregate from its stored entries.
func (e *Engine) Rebuild(ctx context.Context, submissionID string) (model.Submission, error) {
	const op = "rebuild"
	sub, err := e.store.RebuildAggregate(ctx, submissionID, e.aggregate, e.clock.Now())
	if err != nil {
		metrics.RecordAggregateRebuild("error")
		return model.Submission{}, storeErr(op, err, fmt.Sprintf("submission %s not found", submissionID))
	}
	metrics.RecordAggregateRebuild("ok")
	return sub, nil
}

// RebuildRound recomputes every aggregate of a round sequentially and
// returns how many submissions were rebuilt.
func (e *Engine) RebuildRound(ctx context.Context, hackathonID string, round int) (int, error) {
	subs, err := e.Submissions(ctx, hackathonID, round)
	if err != nil {
		return 0, err
	}
	for i, s := range subs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := e.Rebuild(ctx, s.ID); err != nil {
			return i, err
		}
	}
	e.logger.Info(ctx, "round aggregates rebuilt",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.Int("submissions", len(subs)))
	return len(subs), nil
}
