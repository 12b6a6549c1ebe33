package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/metrics"
)

type roundKey struct {
	hackathonID string
	round       int
}

type assignmentKey struct {
	roundKey
	judgeID string
}

type scoreKey struct {
	submissionID string
	judgeID      string
	round        int
}

// MemoryStore keeps all judging state in process. A single RWMutex guards
// every map, so each write method is one atomic section and readers never
// observe half-applied batches.
type MemoryStore struct {
	mu sync.RWMutex

	hackathons  map[string]model.Hackathon
	teams       map[string]map[string][]string // hackathon -> team -> members
	submissions map[string]model.Submission
	assignments map[assignmentKey]model.JudgeAssignment
	scores      map[scoreKey]model.ScoreEntry
	progress    map[roundKey]model.RoundProgress
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hackathons:  make(map[string]model.Hackathon),
		teams:       make(map[string]map[string][]string),
		submissions: make(map[string]model.Submission),
		assignments: make(map[assignmentKey]model.JudgeAssignment),
		scores:      make(map[scoreKey]model.ScoreEntry),
		progress:    make(map[roundKey]model.RoundProgress),
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// ---------- Hackathons ----------

func (s *MemoryStore) PutHackathon(_ context.Context, h model.Hackathon) error {
	defer observe("put_hackathon", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hackathons[h.ID] = cloneHackathon(h)
	return nil
}

func (s *MemoryStore) Hackathon(_ context.Context, id string) (model.Hackathon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hackathons[id]
	if !ok {
		return model.Hackathon{}, ErrNotFound
	}
	return cloneHackathon(h), nil
}

// ---------- Teams ----------

func (s *MemoryStore) PutTeam(_ context.Context, team model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTeam, ok := s.teams[team.HackathonID]
	if !ok {
		byTeam = make(map[string][]string)
		s.teams[team.HackathonID] = byTeam
	}
	byTeam[team.ID] = model.NewSet(team.Members...)
	return nil
}

func (s *MemoryStore) TeamOf(_ context.Context, hackathonID, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(s.teams[hackathonID]))
	for _, id := range ids {
		if slices.Contains(s.teams[hackathonID][id], userID) {
			return id, nil
		}
	}
	return "", nil
}

func (s *MemoryStore) IsTeam(_ context.Context, hackathonID, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.teams[hackathonID][id]; ok {
		return true, nil
	}
	for _, sub := range s.submissions {
		if sub.HackathonID == hackathonID && sub.TeamID == id {
			return true, nil
		}
	}
	return false, nil
}

// ---------- Submissions ----------

func (s *MemoryStore) CreateSubmission(_ context.Context, sub model.Submission) error {
	defer observe("create_submission", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[sub.ID]; exists {
		return ErrConflict
	}
	s.submissions[sub.ID] = sub
	return nil
}

func (s *MemoryStore) Submission(_ context.Context, id string) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return model.Submission{}, ErrNotFound
	}
	return sub, nil
}

func (s *MemoryStore) Submissions(_ context.Context, hackathonID string, round int) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roundSubmissions(hackathonID, round), nil
}

// roundSubmissions must be called with s.mu held.
func (s *MemoryStore) roundSubmissions(hackathonID string, round int) []model.Submission {
	out := make([]model.Submission, 0)
	for _, sub := range s.submissions {
		if sub.HackathonID == hackathonID && sub.RoundIndex == round {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) LatestSubmission(_ context.Context, hackathonID string, round int, ownerID, teamID string) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest model.Submission
		found  bool
	)
	for _, sub := range s.roundSubmissions(hackathonID, round) {
		if sub.Status == model.StatusDraft {
			continue
		}
		if (ownerID != "" && sub.OwnerID == ownerID) || (teamID != "" && sub.TeamID == teamID) {
			latest, found = sub, true
		}
	}
	if !found {
		return model.Submission{}, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) UpdateSubmission(_ context.Context, id string, fn SubmissionFunc) (model.Submission, error) {
	defer observe("update_submission", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.submissions[id]
	if !ok {
		return model.Submission{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return model.Submission{}, err
	}
	cur.Status = next.Status
	cur.UpdatedAt = next.UpdatedAt
	s.submissions[id] = cur
	return cur, nil
}

// ---------- Assignments ----------

func (s *MemoryStore) UpsertAssignment(_ context.Context, hackathonID string, round int, judgeID string, fn AssignmentFunc) (model.JudgeAssignment, error) {
	defer observe("upsert_assignment", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{roundKey{hackathonID, round}, judgeID}
	cur, exists := s.assignments[key]
	next, err := fn(cloneAssignment(cur), exists)
	if err != nil {
		return model.JudgeAssignment{}, err
	}
	next.HackathonID, next.RoundIndex, next.JudgeID = hackathonID, round, judgeID
	s.assignments[key] = cloneAssignment(next)
	return next, nil
}

func (s *MemoryStore) Assignment(_ context.Context, hackathonID string, round int, judgeID string) (model.JudgeAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentKey{roundKey{hackathonID, round}, judgeID}]
	if !ok {
		return model.JudgeAssignment{}, ErrNotFound
	}
	return cloneAssignment(a), nil
}

func (s *MemoryStore) Assignments(_ context.Context, hackathonID string, round int) ([]model.JudgeAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.JudgeAssignment, 0)
	for k, a := range s.assignments {
		if k.hackathonID == hackathonID && k.round == round {
			out = append(out, cloneAssignment(a))
		}
	}
	slices.SortFunc(out, func(a, b model.JudgeAssignment) int {
		switch {
		case a.JudgeID < b.JudgeID:
			return -1
		case a.JudgeID > b.JudgeID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *MemoryStore) ReplaceAssignments(_ context.Context, hackathonID string, round int, assignments []model.JudgeAssignment) error {
	defer observe("replace_assignments", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.assignments {
		if k.hackathonID == hackathonID && k.round == round {
			delete(s.assignments, k)
		}
	}
	for _, a := range assignments {
		a.HackathonID, a.RoundIndex = hackathonID, round
		s.assignments[assignmentKey{roundKey{hackathonID, round}, a.JudgeID}] = cloneAssignment(a)
	}
	return nil
}

func (s *MemoryStore) DeleteAssignment(_ context.Context, hackathonID string, round int, judgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{roundKey{hackathonID, round}, judgeID}
	if _, ok := s.assignments[key]; !ok {
		return ErrNotFound
	}
	delete(s.assignments, key)
	return nil
}

// ---------- Scores ----------

func (s *MemoryStore) UpsertScore(_ context.Context, entry model.ScoreEntry, guard ScoreGuard, agg AggregateFunc) (ScoreWrite, error) {
	defer observe("upsert_score", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[entry.SubmissionID]
	if !ok {
		return ScoreWrite{}, ErrNotFound
	}
	if guard != nil {
		rk := roundKey{sub.HackathonID, entry.RoundIndex}
		p, hasProgress := s.progress[rk]
		a, hasAssignment := s.assignments[assignmentKey{rk, entry.JudgeID}]
		if err := guard(ScoreState{
			Submission:    sub,
			Progress:      cloneProgress(p),
			HasProgress:   hasProgress,
			Assignment:    cloneAssignment(a),
			HasAssignment: hasAssignment,
		}); err != nil {
			return ScoreWrite{}, err
		}
	}
	key := scoreKey{entry.SubmissionID, entry.JudgeID, entry.RoundIndex}
	prev, exists := s.scores[key]
	if exists {
		entry.ID = prev.ID
		entry.CreatedAt = prev.CreatedAt
	}
	s.scores[key] = cloneScore(entry)

	sub.AggregateScore, sub.ScoreCount = agg(s.submissionScores(sub.ID))
	sub.UpdatedAt = entry.UpdatedAt
	s.submissions[sub.ID] = sub

	return ScoreWrite{Entry: cloneScore(entry), Submission: sub, Created: !exists}, nil
}

func (s *MemoryStore) Scores(_ context.Context, submissionID string) ([]model.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissionScores(submissionID), nil
}

// submissionScores must be called with s.mu held.
func (s *MemoryStore) submissionScores(submissionID string) []model.ScoreEntry {
	out := make([]model.ScoreEntry, 0)
	for k, e := range s.scores {
		if k.submissionID == submissionID {
			out = append(out, cloneScore(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JudgeID != out[j].JudgeID {
			return out[i].JudgeID < out[j].JudgeID
		}
		return out[i].RoundIndex < out[j].RoundIndex
	})
	return out
}

func (s *MemoryStore) RebuildAggregate(_ context.Context, submissionID string, agg AggregateFunc, at time.Time) (model.Submission, error) {
	defer observe("rebuild_aggregate", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return model.Submission{}, ErrNotFound
	}
	sub.AggregateScore, sub.ScoreCount = agg(s.submissionScores(submissionID))
	sub.UpdatedAt = at
	s.submissions[submissionID] = sub
	return sub, nil
}

// ---------- Round progress ----------

func (s *MemoryStore) RoundProgress(_ context.Context, hackathonID string, round int) (model.RoundProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[roundKey{hackathonID, round}]
	if !ok {
		return model.RoundProgress{}, ErrNotFound
	}
	return cloneProgress(p), nil
}

func (s *MemoryStore) ApplyShortlist(_ context.Context, progress model.RoundProgress, statuses map[string]model.SubmissionStatus, at time.Time) error {
	defer observe("apply_shortlist", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching anything.
	for id := range statuses {
		sub, ok := s.submissions[id]
		if !ok || sub.HackathonID != progress.HackathonID || sub.RoundIndex != progress.RoundIndex {
			return ErrNotFound
		}
	}
	for id, status := range statuses {
		sub := s.submissions[id]
		sub.Status = status
		sub.UpdatedAt = at
		s.submissions[id] = sub
	}
	s.progress[roundKey{progress.HackathonID, progress.RoundIndex}] = cloneProgress(progress)
	return nil
}

func (s *MemoryStore) ToggleShortlist(_ context.Context, submissionID string, fn ToggleFunc) (model.Submission, model.RoundProgress, error) {
	defer observe("toggle_shortlist", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[submissionID]
	if !ok {
		return model.Submission{}, model.RoundProgress{}, ErrNotFound
	}
	key := roundKey{sub.HackathonID, sub.RoundIndex}
	cur, found := s.progress[key]
	nextSub, nextProgress, err := fn(sub, cloneProgress(cur), found, s.roundSubmissions(sub.HackathonID, sub.RoundIndex))
	if err != nil {
		return model.Submission{}, model.RoundProgress{}, err
	}
	sub.Status = nextSub.Status
	sub.UpdatedAt = nextSub.UpdatedAt
	s.submissions[submissionID] = sub
	nextProgress.HackathonID, nextProgress.RoundIndex = key.hackathonID, key.round
	s.progress[key] = cloneProgress(nextProgress)
	return sub, nextProgress, nil
}

// ---------- Misc ----------

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Hackathons:  len(s.hackathons),
		Submissions: len(s.submissions),
		Scores:      len(s.scores),
		Assignments: len(s.assignments),
	}, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneHackathon(h model.Hackathon) model.Hackathon {
	h.Judges = slices.Clone(h.Judges)
	h.ProblemStatements = slices.Clone(h.ProblemStatements)
	rounds := make([]model.Round, len(h.Rounds))
	for i, r := range h.Rounds {
		r.Criteria = slices.Clone(r.Criteria)
		rounds[i] = r
	}
	h.Rounds = rounds
	return h
}

func cloneAssignment(a model.JudgeAssignment) model.JudgeAssignment {
	a.Targets = slices.Clone(a.Targets)
	return a
}

func cloneScore(e model.ScoreEntry) model.ScoreEntry {
	e.Scores = maps.Clone(e.Scores)
	return e
}

func cloneProgress(p model.RoundProgress) model.RoundProgress {
	p.ShortlistedSubmissions = slices.Clone(p.ShortlistedSubmissions)
	p.ShortlistedTeams = slices.Clone(p.ShortlistedTeams)
	p.EligibleParticipants = slices.Clone(p.EligibleParticipants)
	return p
}
