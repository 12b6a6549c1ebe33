package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/types"
	"github.com/okian/hackjudge/pkg/logger"
)

// closeMargin is waited past the round close before checking eligibility.
const closeMargin = 100 * time.Millisecond

type runner struct {
	cfg    *Config
	client *Client
	plan   *Plan
	log    logger.Logger
	stats  *Stats

	organizer Identity
	subs      []model.Submission // parallel to plan.Entrants
	expected  map[string][]float64
	progress  model.RoundProgress
}

// Run executes the full simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	r := &runner{
		cfg:       cfg,
		client:    NewClient(cfg.BaseURL, cfg.Timeout),
		plan:      NewPlan(cfg, start),
		log:       logger.Get().Named("simulate"),
		stats:     &Stats{StartTime: start},
		organizer: Identity{ID: "organizer", Role: roleOrganizer},
		expected:  make(map[string][]float64),
	}
	r.log.Info(ctx, "starting simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.String("hackathon_id", r.plan.Hackathon.ID),
		logger.Int("entrants", len(r.plan.Entrants)),
		logger.Int("judges", cfg.Judges),
		logger.Duration("round_window", cfg.RoundWindow))

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"health", r.checkHealth},
		{"configure", r.configure},
		{"submit", r.submit},
		{"assign", r.assign},
		{"score", r.score},
		{"leaderboard", r.leaderboard},
		{"shortlist", r.shortlist},
		{"wait_close", r.waitForClose},
		{"eligibility", r.eligibility},
		{"rebuild", r.rebuild},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return r.stats, fmt.Errorf("%s: %w", s.name, err)
		}
		if cfg.Verbose {
			r.log.Info(ctx, "step completed", logger.String("step", s.name))
		}
	}

	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	r.log.Info(ctx, "simulation completed",
		logger.Int("submissions", r.stats.Submissions),
		logger.Int("scores", r.stats.ScoresSubmitted),
		logger.Int("shortlisted", r.stats.Shortlisted),
		logger.Int("eligibility_checks", r.stats.EligibleChecked),
		logger.Int("rebuilds", r.stats.RebuildsEnqueued),
		logger.Duration("duration", r.stats.Duration))
	return r.stats, nil
}

func (r *runner) checkHealth(ctx context.Context) error {
	var health types.HealthResponse
	if _, err := r.client.Do(ctx, Identity{}, http.MethodGet, "/healthz", nil, &health); err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("service reports status %q", health.Status)
	}
	return nil
}

func (r *runner) configure(ctx context.Context) error {
	h := r.plan.Hackathon
	if _, err := r.client.Do(ctx, r.organizer, http.MethodPut, "/hackathons/"+h.ID, h, nil); err != nil {
		return err
	}
	for _, e := range r.plan.Entrants {
		if e.TeamID == "" {
			continue
		}
		path := "/hackathons/" + h.ID + "/teams/" + e.TeamID
		if _, err := r.client.Do(ctx, r.organizer, http.MethodPut, path, types.TeamRequest{Members: e.Members}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) submit(ctx context.Context) error {
	r.subs = make([]model.Submission, len(r.plan.Entrants))
	err := forEach(ctx, r.cfg.Workers, len(r.plan.Entrants), func(i int) error {
		e := r.plan.Entrants[i]
		body := types.SubmitRequest{HackathonID: r.plan.Hackathon.ID, RoundIndex: 0, TeamID: e.TeamID}
		_, err := r.client.Do(ctx, Identity{ID: e.Owner, Role: roleParticipant}, http.MethodPost, "/submissions", body, &r.subs[i])
		return err
	})
	if err != nil {
		return err
	}
	r.stats.Submissions = len(r.subs)
	return nil
}

func (r *runner) assign(ctx context.Context) error {
	h := r.plan.Hackathon
	var out []model.JudgeAssignment
	body := types.AutoDistributeRequest{HackathonID: h.ID, RoundIndex: 0}
	if _, err := r.client.Do(ctx, r.organizer, http.MethodPost, "/auto-distribute", body, &out); err != nil {
		return err
	}
	if err := verifyDistribution(out, len(r.subs)); err != nil {
		return err
	}
	for _, a := range out {
		req := types.AssignmentStatusRequest{HackathonID: h.ID, RoundIndex: 0, Status: model.AssignmentAccepted}
		if _, err := r.client.Do(ctx, Identity{ID: a.JudgeID, Role: roleJudge}, http.MethodPost, "/assignments/status", req, nil); err != nil {
			return fmt.Errorf("accept %s: %w", a.JudgeID, err)
		}
	}
	r.stats.Assignments = len(out)
	return nil
}

type scoreJob struct {
	judge Identity
	req   types.ScoreRequest
}

// score sends every judge's scores for its assigned submissions. The scores
// are drawn up front so the run is reproducible for a given seed.
func (r *runner) score(ctx context.Context) error {
	var assignments []model.JudgeAssignment
	path := "/assignments?hackathon_id=" + r.plan.Hackathon.ID + "&round=0"
	if _, err := r.client.Do(ctx, r.organizer, http.MethodGet, path, nil, &assignments); err != nil {
		return err
	}
	quality := make(map[string]float64, len(r.subs))
	for i, s := range r.subs {
		quality[s.ID] = r.plan.Entrants[i].Quality
	}

	var jobs []scoreJob
	for _, a := range assignments {
		for _, t := range a.Targets {
			scores := r.plan.Scores(quality[t.ID])
			total, err := expectedTotal(scores)
			if err != nil {
				return err
			}
			r.expected[t.ID] = append(r.expected[t.ID], total)
			jobs = append(jobs, scoreJob{
				judge: Identity{ID: a.JudgeID, Role: roleJudge},
				req:   types.ScoreRequest{SubmissionID: t.ID, RoundIndex: 0, Scores: scores},
			})
		}
	}

	var failed atomic.Int64
	err := forEach(ctx, r.cfg.Workers, len(jobs), func(i int) error {
		j := jobs[i]
		if _, err := r.client.Do(ctx, j.judge, http.MethodPost, "/score", j.req, nil); err != nil {
			failed.Add(1)
			return fmt.Errorf("score %s by %s: %w", j.req.SubmissionID, j.judge.ID, err)
		}
		return nil
	})
	r.stats.ScoresFailed = int(failed.Load())
	r.stats.ScoresSubmitted = len(jobs) - r.stats.ScoresFailed
	return err
}

func (r *runner) leaderboard(ctx context.Context) error {
	var lb types.LeaderboardResponse
	path := "/leaderboard?hackathon_id=" + r.plan.Hackathon.ID + "&round=0"
	if _, err := r.client.Do(ctx, r.organizer, http.MethodGet, path, nil, &lb); err != nil {
		return err
	}
	return verifyLeaderboard(lb.Entries, r.expected)
}

// shortlist runs top_n twice under one idempotency key and expects the
// second call to replay the first.
func (r *runner) shortlist(ctx context.Context) error {
	req := types.ShortlistRequest{
		HackathonID: r.plan.Hackathon.ID,
		RoundIndex:  0,
		Mode:        model.ShortlistTopN,
		Param:       float64(r.cfg.Shortlist),
	}
	key := "sim-shortlist-" + r.plan.Hackathon.ID
	var res judging.ShortlistResult
	first, err := r.client.Do(ctx, r.organizer, http.MethodPost, "/shortlist", req, &res, "Idempotency-Key", key)
	if err != nil {
		return err
	}
	again, err := r.client.Do(ctx, r.organizer, http.MethodPost, "/shortlist", req, nil, "Idempotency-Key", key)
	if err != nil {
		return err
	}
	if again.Header.Get("Idempotent-Replayed") != "true" || string(again.Body) != string(first.Body) {
		return errors.New("repeated shortlist request was not replayed")
	}
	want := min(r.cfg.Shortlist, len(r.subs))
	if res.Selected != want {
		return fmt.Errorf("shortlist selected %d submissions, want %d", res.Selected, want)
	}
	r.progress = res.Progress
	r.stats.Shortlisted = res.Selected
	return nil
}

func (r *runner) waitForClose(ctx context.Context) error {
	wait := time.Until(r.plan.Hackathon.Rounds[0].ClosesAt) + closeMargin
	if wait <= 0 {
		return nil
	}
	r.log.Info(ctx, "waiting for round 0 to close", logger.Duration("wait", wait))
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// eligibility checks every entrant against round 1, then submits once as
// an eligible and once as an ineligible entrant.
func (r *runner) eligibility(ctx context.Context) error {
	h := r.plan.Hackathon
	var eligible, rejected *Entrant
	for i := range r.plan.Entrants {
		e := &r.plan.Entrants[i]
		want := r.progress.HasSubmission(r.subs[i].ID)
		for _, m := range e.Members {
			var d types.EligibilityResponse
			path := "/eligibility?hackathon_id=" + h.ID + "&round=1&subject_id=" + m
			if _, err := r.client.Do(ctx, r.organizer, http.MethodGet, path, nil, &d); err != nil {
				return err
			}
			r.stats.EligibleChecked++
			if d.Eligible != want {
				return fmt.Errorf("%s: eligible=%t (%s), want %t", m, d.Eligible, d.Reason, want)
			}
		}
		if want && eligible == nil {
			eligible = e
		}
		if !want && rejected == nil {
			rejected = e
		}
	}

	if eligible != nil {
		body := types.SubmitRequest{HackathonID: h.ID, RoundIndex: 1, TeamID: eligible.TeamID}
		if _, err := r.client.Do(ctx, Identity{ID: eligible.Owner, Role: roleParticipant}, http.MethodPost, "/submissions", body, nil); err != nil {
			return fmt.Errorf("eligible entrant could not submit to round 1: %w", err)
		}
	}
	if rejected != nil {
		body := types.SubmitRequest{HackathonID: h.ID, RoundIndex: 1, TeamID: rejected.TeamID}
		_, err := r.client.Do(ctx, Identity{ID: rejected.Owner, Role: roleParticipant}, http.MethodPost, "/submissions", body, nil)
		if !IsCode(err, string(judging.KindNotEligible)) {
			return fmt.Errorf("ineligible entrant submission: want not_eligible, got %v", err)
		}
	}
	return nil
}

func (r *runner) rebuild(ctx context.Context) error {
	var out types.RebuildResponse
	body := types.RebuildRequest{HackathonID: r.plan.Hackathon.ID, RoundIndex: 0}
	if _, err := r.client.Do(ctx, r.organizer, http.MethodPost, "/rebuild-aggregates", body, &out); err != nil {
		return err
	}
	r.stats.RebuildsEnqueued = out.Enqueued
	return nil
}

// forEach runs fn for 0..n-1 on workers goroutines and returns the first
// error. Remaining items are skipped once ctx ends.
func forEach(ctx context.Context, workers, n int, fn func(i int) error) error {
	idx := make(chan int, workers*2)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				if err := fn(i); err != nil {
					once.Do(func() { firstErr = err })
				}
			}
		}()
	}
	func() {
		defer close(idx)
		for i := range n {
			select {
			case <-ctx.Done():
				return
			case idx <- i:
			}
		}
	}()
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
