package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/hackjudge/internal/domain/model"
)

//go:embed schema.sql
var embeddedSchema embed.FS

// Default SQLite configuration constants.
const (
	defaultMaxOpenConns = 1
	defaultBusyTimeout  = 5 * time.Second
)

const submissionColumns = `id, hackathon_id, round_index, team_id, owner_id, problem_statement_id, status, aggregate_score, score_count, created_at, updated_at`

const scoreColumns = `id, submission_id, judge_id, round_index, scores, feedback, total, created_at, updated_at`

// SQLiteStore implements Store on top of database/sql and go-sqlite3.
// Transactions start with BEGIN IMMEDIATE so concurrent writers serialize on
// the database lock instead of failing at commit.
type SQLiteStore struct {
	db           *sql.DB
	maxOpenConns int
	busyTimeout  time.Duration
}

var _ Store = (*SQLiteStore)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// NewSQLiteStore opens dsn, applies the schema and returns a ready store.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		maxOpenConns: defaultMaxOpenConns,
		busyTimeout:  defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", s.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// dsn appends the driver parameters the store relies on unless the caller
// already set them.
func (s *SQLiteStore) dsn(dsn string) string {
	params := url.Values{}
	if !strings.Contains(dsn, "_txlock") {
		params.Set("_txlock", "immediate")
	}
	if !strings.Contains(dsn, "_busy_timeout") && !strings.Contains(dsn, "_timeout") {
		params.Set("_busy_timeout", strconv.FormatInt(s.busyTimeout.Milliseconds(), 10))
	}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params.Set("_foreign_keys", "on")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

// InitSchema creates the tables if they do not exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, strings.TrimSpace(string(b))); err != nil {
		return fmt.Errorf("apply schema: %w", mapErr(err))
	}
	return nil
}

// DB exposes the underlying handle for maintenance tooling.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// withTx runs fn in one transaction and rolls back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	defer observe(op, time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, mapErr(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return mapErr(err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, mapErr(err))
	}
	return nil
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", ErrTransient, err)
		case sqlite3.ErrConstraint:
			if se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique {
				return fmt.Errorf("%w: %w", ErrConflict, err)
			}
		}
	}
	return err
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return string(b), nil
}

// ---------- Hackathons ----------

func (s *SQLiteStore) PutHackathon(ctx context.Context, h model.Hackathon) error {
	defer observe("put_hackathon", time.Now())
	body, err := encodeJSON(h)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO hackathons(id, body) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET body = excluded.body
`, h.ID, body)
	return mapErr(err)
}

func (s *SQLiteStore) Hackathon(ctx context.Context, id string) (model.Hackathon, error) {
	var body string
	if err := s.db.QueryRowContext(ctx, `SELECT body FROM hackathons WHERE id = ?`, id).Scan(&body); err != nil {
		return model.Hackathon{}, mapErr(err)
	}
	var h model.Hackathon
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		return model.Hackathon{}, fmt.Errorf("decode hackathon %s: %w", id, err)
	}
	return h, nil
}

// ---------- Teams ----------

func (s *SQLiteStore) PutTeam(ctx context.Context, team model.Team) error {
	return s.withTx(ctx, "put_team", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO teams(hackathon_id, team_id) VALUES (?, ?)`, team.HackathonID, team.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE hackathon_id = ? AND team_id = ?`, team.HackathonID, team.ID); err != nil {
			return err
		}
		for _, member := range model.NewSet(team.Members...) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO team_members(hackathon_id, team_id, user_id) VALUES (?, ?, ?)`, team.HackathonID, team.ID, member); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) TeamOf(ctx context.Context, hackathonID, userID string) (string, error) {
	var teamID string
	err := s.db.QueryRowContext(ctx, `
SELECT team_id FROM team_members
WHERE hackathon_id = ? AND user_id = ?
ORDER BY team_id LIMIT 1
`, hackathonID, userID).Scan(&teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapErr(err)
	}
	return teamID, nil
}

func (s *SQLiteStore) IsTeam(ctx context.Context, hackathonID, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var ok bool
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM teams WHERE hackathon_id = ? AND team_id = ?)
    OR EXISTS(SELECT 1 FROM submissions WHERE hackathon_id = ? AND team_id = ?)
`, hackathonID, id, hackathonID, id).Scan(&ok)
	if err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

// ---------- Submissions ----------

func scanSubmission(row scanner) (model.Submission, error) {
	var (
		sub                  model.Submission
		status               string
		createdAt, updatedAt int64
	)
	err := row.Scan(&sub.ID, &sub.HackathonID, &sub.RoundIndex, &sub.TeamID, &sub.OwnerID,
		&sub.ProblemStatementID, &status, &sub.AggregateScore, &sub.ScoreCount, &createdAt, &updatedAt)
	if err != nil {
		return model.Submission{}, err
	}
	sub.Status = model.SubmissionStatus(status)
	sub.CreatedAt = fromNanos(createdAt)
	sub.UpdatedAt = fromNanos(updatedAt)
	return sub, nil
}

func getSubmission(ctx context.Context, q queryer, id string) (model.Submission, error) {
	row := q.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return model.Submission{}, mapErr(err)
	}
	return sub, nil
}

func listSubmissions(ctx context.Context, q queryer, hackathonID string, round int) ([]model.Submission, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+submissionColumns+` FROM submissions
WHERE hackathon_id = ? AND round_index = ?
ORDER BY created_at, id
`, hackathonID, round)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]model.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub model.Submission) error {
	defer observe("create_submission", time.Now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO submissions(`+submissionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, sub.ID, sub.HackathonID, sub.RoundIndex, sub.TeamID, sub.OwnerID, sub.ProblemStatementID,
		string(sub.Status), sub.AggregateScore, sub.ScoreCount, toNanos(sub.CreatedAt), toNanos(sub.UpdatedAt))
	return mapErr(err)
}

func (s *SQLiteStore) Submission(ctx context.Context, id string) (model.Submission, error) {
	return getSubmission(ctx, s.db, id)
}

func (s *SQLiteStore) Submissions(ctx context.Context, hackathonID string, round int) ([]model.Submission, error) {
	return listSubmissions(ctx, s.db, hackathonID, round)
}

func (s *SQLiteStore) LatestSubmission(ctx context.Context, hackathonID string, round int, ownerID, teamID string) (model.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+submissionColumns+` FROM submissions
WHERE hackathon_id = ? AND round_index = ? AND status <> ?
  AND ((? <> '' AND owner_id = ?) OR (? <> '' AND team_id = ?))
ORDER BY created_at DESC, id DESC
LIMIT 1
`, hackathonID, round, string(model.StatusDraft), ownerID, ownerID, teamID, teamID)
	sub, err := scanSubmission(row)
	if err != nil {
		return model.Submission{}, mapErr(err)
	}
	return sub, nil
}

func (s *SQLiteStore) UpdateSubmission(ctx context.Context, id string, fn SubmissionFunc) (model.Submission, error) {
	var out model.Submission
	err := s.withTx(ctx, "update_submission", func(tx *sql.Tx) error {
		cur, err := getSubmission(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`,
			string(next.Status), toNanos(next.UpdatedAt), id); err != nil {
			return err
		}
		cur.Status, cur.UpdatedAt = next.Status, next.UpdatedAt
		out = cur
		return nil
	})
	return out, err
}

// ---------- Assignments ----------

func scanAssignment(row scanner) (model.JudgeAssignment, error) {
	var (
		a         model.JudgeAssignment
		targets   string
		status    string
		updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.HackathonID, &a.RoundIndex, &a.JudgeID, &targets, &status, &updatedAt); err != nil {
		return model.JudgeAssignment{}, err
	}
	if err := json.Unmarshal([]byte(targets), &a.Targets); err != nil {
		return model.JudgeAssignment{}, fmt.Errorf("decode targets of %s: %w", a.ID, err)
	}
	a.Status = model.AssignmentStatus(status)
	a.UpdatedAt = fromNanos(updatedAt)
	return a, nil
}

const assignmentColumns = `id, hackathon_id, round_index, judge_id, targets, status, updated_at`

func getAssignment(ctx context.Context, q queryer, hackathonID string, round int, judgeID string) (model.JudgeAssignment, error) {
	row := q.QueryRowContext(ctx, `
SELECT `+assignmentColumns+` FROM judge_assignments
WHERE hackathon_id = ? AND round_index = ? AND judge_id = ?
`, hackathonID, round, judgeID)
	a, err := scanAssignment(row)
	if err != nil {
		return model.JudgeAssignment{}, mapErr(err)
	}
	return a, nil
}

func putAssignment(ctx context.Context, q queryer, a model.JudgeAssignment) error {
	targets, err := encodeJSON(a.Targets)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
INSERT INTO judge_assignments(`+assignmentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hackathon_id, round_index, judge_id) DO UPDATE SET
    id = excluded.id,
    targets = excluded.targets,
    status = excluded.status,
    updated_at = excluded.updated_at
`, a.ID, a.HackathonID, a.RoundIndex, a.JudgeID, targets, string(a.Status), toNanos(a.UpdatedAt))
	return err
}

func (s *SQLiteStore) UpsertAssignment(ctx context.Context, hackathonID string, round int, judgeID string, fn AssignmentFunc) (model.JudgeAssignment, error) {
	var out model.JudgeAssignment
	err := s.withTx(ctx, "upsert_assignment", func(tx *sql.Tx) error {
		cur, err := getAssignment(ctx, tx, hackathonID, round, judgeID)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next, err := fn(cur, exists)
		if err != nil {
			return err
		}
		next.HackathonID, next.RoundIndex, next.JudgeID = hackathonID, round, judgeID
		if err := putAssignment(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *SQLiteStore) Assignment(ctx context.Context, hackathonID string, round int, judgeID string) (model.JudgeAssignment, error) {
	return getAssignment(ctx, s.db, hackathonID, round, judgeID)
}

func (s *SQLiteStore) Assignments(ctx context.Context, hackathonID string, round int) ([]model.JudgeAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+assignmentColumns+` FROM judge_assignments
WHERE hackathon_id = ? AND round_index = ?
ORDER BY judge_id
`, hackathonID, round)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]model.JudgeAssignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *SQLiteStore) ReplaceAssignments(ctx context.Context, hackathonID string, round int, assignments []model.JudgeAssignment) error {
	return s.withTx(ctx, "replace_assignments", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM judge_assignments WHERE hackathon_id = ? AND round_index = ?`, hackathonID, round); err != nil {
			return err
		}
		for _, a := range assignments {
			a.HackathonID, a.RoundIndex = hackathonID, round
			if err := putAssignment(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) DeleteAssignment(ctx context.Context, hackathonID string, round int, judgeID string) error {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM judge_assignments WHERE hackathon_id = ? AND round_index = ? AND judge_id = ?
`, hackathonID, round, judgeID)
	if err != nil {
		return mapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- Scores ----------

func scanScore(row scanner) (model.ScoreEntry, error) {
	var (
		e                    model.ScoreEntry
		scores               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&e.ID, &e.SubmissionID, &e.JudgeID, &e.RoundIndex, &scores, &e.Feedback, &e.Total, &createdAt, &updatedAt); err != nil {
		return model.ScoreEntry{}, err
	}
	if err := json.Unmarshal([]byte(scores), &e.Scores); err != nil {
		return model.ScoreEntry{}, fmt.Errorf("decode scores of %s: %w", e.ID, err)
	}
	e.CreatedAt = fromNanos(createdAt)
	e.UpdatedAt = fromNanos(updatedAt)
	return e, nil
}

func listScores(ctx context.Context, q queryer, submissionID string) ([]model.ScoreEntry, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+scoreColumns+` FROM score_entries
WHERE submission_id = ?
ORDER BY judge_id, round_index
`, submissionID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]model.ScoreEntry, 0)
	for rows.Next() {
		e, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func updateAggregate(ctx context.Context, tx *sql.Tx, submissionID string, agg AggregateFunc, at time.Time) (model.Submission, error) {
	entries, err := listScores(ctx, tx, submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	aggregate, count := agg(entries)
	if _, err := tx.ExecContext(ctx, `
UPDATE submissions SET aggregate_score = ?, score_count = ?, updated_at = ? WHERE id = ?
`, aggregate, count, toNanos(at), submissionID); err != nil {
		return model.Submission{}, err
	}
	return getSubmission(ctx, tx, submissionID)
}

func (s *SQLiteStore) UpsertScore(ctx context.Context, entry model.ScoreEntry, guard ScoreGuard, agg AggregateFunc) (ScoreWrite, error) {
	var out ScoreWrite
	err := s.withTx(ctx, "upsert_score", func(tx *sql.Tx) error {
		sub, err := getSubmission(ctx, tx, entry.SubmissionID)
		if err != nil {
			return err
		}
		if guard != nil {
			state, err := scoreState(ctx, tx, sub, entry)
			if err != nil {
				return err
			}
			if err := guard(state); err != nil {
				return err
			}
		}

		var (
			prevID      string
			prevCreated int64
		)
		err = tx.QueryRowContext(ctx, `
SELECT id, created_at FROM score_entries
WHERE submission_id = ? AND judge_id = ? AND round_index = ?
`, entry.SubmissionID, entry.JudgeID, entry.RoundIndex).Scan(&prevID, &prevCreated)
		switch {
		case err == nil:
			entry.ID = prevID
			entry.CreatedAt = fromNanos(prevCreated)
		case errors.Is(err, sql.ErrNoRows):
			out.Created = true
		default:
			return err
		}

		scores, err := encodeJSON(entry.Scores)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO score_entries(`+scoreColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(submission_id, judge_id, round_index) DO UPDATE SET
    scores = excluded.scores,
    feedback = excluded.feedback,
    total = excluded.total,
    updated_at = excluded.updated_at
`, entry.ID, entry.SubmissionID, entry.JudgeID, entry.RoundIndex, scores, entry.Feedback, entry.Total,
			toNanos(entry.CreatedAt), toNanos(entry.UpdatedAt)); err != nil {
			return err
		}

		updated, err := updateAggregate(ctx, tx, entry.SubmissionID, agg, entry.UpdatedAt)
		if err != nil {
			return err
		}
		out.Entry = entry
		out.Submission = updated
		return nil
	})
	if err != nil {
		return ScoreWrite{}, err
	}
	return out, nil
}

// scoreState reads the progress and assignment a score write depends on.
func scoreState(ctx context.Context, tx *sql.Tx, sub model.Submission, entry model.ScoreEntry) (ScoreState, error) {
	state := ScoreState{Submission: sub}
	p, err := getProgress(ctx, tx, sub.HackathonID, entry.RoundIndex)
	switch {
	case err == nil:
		state.Progress, state.HasProgress = p, true
	case !errors.Is(err, ErrNotFound):
		return ScoreState{}, err
	}
	a, err := getAssignment(ctx, tx, sub.HackathonID, entry.RoundIndex, entry.JudgeID)
	switch {
	case err == nil:
		state.Assignment, state.HasAssignment = a, true
	case !errors.Is(err, ErrNotFound):
		return ScoreState{}, err
	}
	return state, nil
}

func (s *SQLiteStore) Scores(ctx context.Context, submissionID string) ([]model.ScoreEntry, error) {
	return listScores(ctx, s.db, submissionID)
}

func (s *SQLiteStore) RebuildAggregate(ctx context.Context, submissionID string, agg AggregateFunc, at time.Time) (model.Submission, error) {
	var out model.Submission
	err := s.withTx(ctx, "rebuild_aggregate", func(tx *sql.Tx) error {
		if _, err := getSubmission(ctx, tx, submissionID); err != nil {
			return err
		}
		sub, err := updateAggregate(ctx, tx, submissionID, agg, at)
		out = sub
		return err
	})
	return out, err
}

// ---------- Round progress ----------

func getProgress(ctx context.Context, q queryer, hackathonID string, round int) (model.RoundProgress, error) {
	var (
		p                               model.RoundProgress
		subs, teams, participants, mode string
		completed                       bool
		shortlistedAt                   int64
	)
	err := q.QueryRowContext(ctx, `
SELECT hackathon_id, round_index, shortlisted_submissions, shortlisted_teams, eligible_participants,
       round_completed, shortlisted_at, mode, param
FROM round_progress WHERE hackathon_id = ? AND round_index = ?
`, hackathonID, round).Scan(&p.HackathonID, &p.RoundIndex, &subs, &teams, &participants,
		&completed, &shortlistedAt, &mode, &p.Param)
	if err != nil {
		return model.RoundProgress{}, mapErr(err)
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{subs, &p.ShortlistedSubmissions}, {teams, &p.ShortlistedTeams}, {participants, &p.EligibleParticipants}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.RoundProgress{}, fmt.Errorf("decode round progress: %w", err)
		}
	}
	p.RoundCompleted = completed
	p.ShortlistedAt = fromNanos(shortlistedAt)
	p.Mode = model.ShortlistMode(mode)
	return p, nil
}

func putProgress(ctx context.Context, q queryer, p model.RoundProgress) error {
	subs, err := encodeJSON(p.ShortlistedSubmissions)
	if err != nil {
		return err
	}
	teams, err := encodeJSON(p.ShortlistedTeams)
	if err != nil {
		return err
	}
	participants, err := encodeJSON(p.EligibleParticipants)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
INSERT INTO round_progress(hackathon_id, round_index, shortlisted_submissions, shortlisted_teams,
    eligible_participants, round_completed, shortlisted_at, mode, param)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hackathon_id, round_index) DO UPDATE SET
    shortlisted_submissions = excluded.shortlisted_submissions,
    shortlisted_teams = excluded.shortlisted_teams,
    eligible_participants = excluded.eligible_participants,
    round_completed = excluded.round_completed,
    shortlisted_at = excluded.shortlisted_at,
    mode = excluded.mode,
    param = excluded.param
`, p.HackathonID, p.RoundIndex, subs, teams, participants, p.RoundCompleted, toNanos(p.ShortlistedAt), string(p.Mode), p.Param)
	return err
}

func (s *SQLiteStore) RoundProgress(ctx context.Context, hackathonID string, round int) (model.RoundProgress, error) {
	return getProgress(ctx, s.db, hackathonID, round)
}

func (s *SQLiteStore) ApplyShortlist(ctx context.Context, progress model.RoundProgress, statuses map[string]model.SubmissionStatus, at time.Time) error {
	return s.withTx(ctx, "apply_shortlist", func(tx *sql.Tx) error {
		for id, status := range statuses {
			res, err := tx.ExecContext(ctx, `
UPDATE submissions SET status = ?, updated_at = ?
WHERE id = ? AND hackathon_id = ? AND round_index = ?
`, string(status), toNanos(at), id, progress.HackathonID, progress.RoundIndex)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n != 1 {
				return ErrNotFound
			}
		}
		return putProgress(ctx, tx, progress)
	})
}

func (s *SQLiteStore) ToggleShortlist(ctx context.Context, submissionID string, fn ToggleFunc) (model.Submission, model.RoundProgress, error) {
	var (
		outSub      model.Submission
		outProgress model.RoundProgress
	)
	err := s.withTx(ctx, "toggle_shortlist", func(tx *sql.Tx) error {
		sub, err := getSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		cur, err := getProgress(ctx, tx, sub.HackathonID, sub.RoundIndex)
		found := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		round, err := listSubmissions(ctx, tx, sub.HackathonID, sub.RoundIndex)
		if err != nil {
			return err
		}

		nextSub, nextProgress, err := fn(sub, cur, found, round)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`,
			string(nextSub.Status), toNanos(nextSub.UpdatedAt), submissionID); err != nil {
			return err
		}
		nextProgress.HackathonID, nextProgress.RoundIndex = sub.HackathonID, sub.RoundIndex
		if err := putProgress(ctx, tx, nextProgress); err != nil {
			return err
		}

		sub.Status, sub.UpdatedAt = nextSub.Status, nextSub.UpdatedAt
		outSub, outProgress = sub, nextProgress
		return nil
	})
	if err != nil {
		return model.Submission{}, model.RoundProgress{}, err
	}
	return outSub, outProgress, nil
}

// ---------- Misc ----------

func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(1) FROM hackathons),
       (SELECT COUNT(1) FROM submissions),
       (SELECT COUNT(1) FROM score_entries),
       (SELECT COUNT(1) FROM judge_assignments)
`).Scan(&c.Hackathons, &c.Submissions, &c.Scores, &c.Assignments)
	if err != nil {
		return Counts{}, mapErr(err)
	}
	return c, nil
}
