// Package api exposes the judging engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/hackjudge/internal/domain/dedupe"
	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/types"
	"github.com/okian/hackjudge/pkg/logger"
)

// Default server configuration constants.
const (
	defaultMaxLeaderboardLimit = 500
	maxBodyBytes               = 1 << 20
)

// Engine is the judging surface the handlers call. *judging.Engine
// satisfies it.
type Engine interface {
	ConfigureHackathon(ctx context.Context, h model.Hackathon) (model.Hackathon, error)
	RegisterTeam(ctx context.Context, team model.Team) error
	Criteria(ctx context.Context, hackathonID string, round int) ([]model.Criterion, error)

	Submit(ctx context.Context, in judging.SubmitInput) (model.Submission, error)
	Finalize(ctx context.Context, submissionID, callerID string) (model.Submission, error)
	Submissions(ctx context.Context, hackathonID string, round int) ([]model.Submission, error)

	Assign(ctx context.Context, judgeID, hackathonID string, round int, targets []model.Target) (model.JudgeAssignment, error)
	AutoDistribute(ctx context.Context, hackathonID string, round int, judgeIDs []string) ([]model.JudgeAssignment, error)
	RespondToAssignment(ctx context.Context, callerID, judgeID, hackathonID string, round int, status model.AssignmentStatus) (model.JudgeAssignment, error)
	Assignments(ctx context.Context, hackathonID string, round int) ([]model.JudgeAssignment, error)
	Unassign(ctx context.Context, judgeID, hackathonID string, round int) error

	SubmitScore(ctx context.Context, in judging.ScoreInput) (judging.ScoreResult, error)
	Scores(ctx context.Context, submissionID string) ([]model.ScoreEntry, error)
	Leaderboard(ctx context.Context, hackathonID string, round, limit int) ([]judging.LeaderboardEntry, error)

	Shortlist(ctx context.Context, req judging.ShortlistRequest) (judging.ShortlistResult, error)
	ToggleShortlist(ctx context.Context, submissionID string) (judging.ToggleResult, error)
	RoundProgress(ctx context.Context, hackathonID string, round int) (model.RoundProgress, error)
	IsEligible(ctx context.Context, hackathonID string, round int, subjectID string) (judging.Decision, error)
}

// RebuildEnqueuer queues aggregate rebuilds for a round.
type RebuildEnqueuer interface {
	EnqueueRebuild(ctx context.Context, hackathonID string, round int) (int, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the limit query parameter of /leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreName reports the active store driver on /healthz.
func WithStoreName(name string) Option {
	return func(s *Server) { s.storeName = name }
}

// Server wires HTTP routes for the judging API.
type Server struct {
	maxLimit  int
	storeName string
	logger    logger.Logger

	health      *HealthHandler
	stats       *StatsHandler
	setup       *SetupHandler
	submissions *SubmissionsHandler
	assignments *AssignmentsHandler
	scores      *ScoresHandler
	leaderboard *LeaderboardHandler
	shortlist   *ShortlistHandler
	eligibility *EligibilityHandler
	rebuild     *RebuildHandler
}

// NewServer creates the API server with all handlers.
func NewServer(engine Engine, deduper dedupe.Deduper, rebuilds RebuildEnqueuer, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxLimit:  defaultMaxLeaderboardLimit,
		storeName: "memory",
		logger:    logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	b := base{logger: s.logger}
	s.health = NewHealthHandler(s.storeName)
	s.stats = NewStatsHandler(statsProvider)
	s.setup = &SetupHandler{base: b, engine: engine}
	s.submissions = &SubmissionsHandler{base: b, engine: engine}
	s.assignments = &AssignmentsHandler{base: b, engine: engine}
	s.scores = &ScoresHandler{base: b, engine: engine}
	s.leaderboard = NewLeaderboardHandler(engine, s.maxLimit)
	s.leaderboard.base = b
	s.shortlist = &ShortlistHandler{base: b, engine: engine, deduper: deduper}
	s.eligibility = &EligibilityHandler{base: b, engine: engine}
	s.rebuild = &RebuildHandler{base: b, rebuilds: rebuilds}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}
	organizer := func(h http.HandlerFunc) http.HandlerFunc { return RequireRole(h, RoleOrganizer) }
	judge := func(h http.HandlerFunc) http.HandlerFunc { return RequireRole(h, RoleJudge) }
	anyone := func(h http.HandlerFunc) http.HandlerFunc { return RequireRole(h) }

	handle("GET /healthz", "healthz", s.health.HandleHealth)
	mux.Handle("GET /metrics", s.health.MetricsHandler())
	handle("GET /stats", "stats", s.stats.HandleStats)

	handle("PUT /hackathons/{id}", "hackathon", organizer(s.setup.HandlePutHackathon))
	handle("PUT /hackathons/{id}/teams/{team}", "team", organizer(s.setup.HandlePutTeam))
	handle("GET /criteria", "criteria", anyone(s.setup.HandleGetCriteria))

	handle("POST /submissions", "submissions", RequireRole(s.submissions.HandleSubmit, RoleParticipant))
	handle("POST /submissions/{id}/finalize", "finalize", RequireRole(s.submissions.HandleFinalize, RoleParticipant))
	handle("GET /submissions/{id}/scores", "scores", RequireRole(s.scores.HandleGetScores, RoleOrganizer, RoleJudge))

	handle("POST /assign-judges", "assign_judges", organizer(s.assignments.HandleAssign))
	handle("POST /auto-distribute", "auto_distribute", organizer(s.assignments.HandleAutoDistribute))
	handle("POST /assignments/status", "assignment_status", judge(s.assignments.HandleStatus))
	handle("GET /assignments", "assignments", RequireRole(s.assignments.HandleList, RoleOrganizer, RoleJudge))
	handle("DELETE /assignments", "unassign", organizer(s.assignments.HandleUnassign))

	handle("POST /score", "score", judge(s.scores.HandleScore))
	handle("GET /leaderboard", "leaderboard", RequireRole(s.leaderboard.HandleGetLeaderboard, RoleOrganizer, RoleJudge))

	handle("POST /shortlist", "shortlist", organizer(s.shortlist.HandleShortlist))
	handle("POST /toggle-shortlist", "toggle_shortlist", organizer(s.shortlist.HandleToggle))
	handle("GET /round-progress", "round_progress", anyone(s.eligibility.HandleRoundProgress))
	handle("GET /eligibility", "eligibility", anyone(s.eligibility.HandleEligibility))

	handle("POST /rebuild-aggregates", "rebuild_aggregates", organizer(s.rebuild.HandleRebuild))
}

// Handler returns a fresh mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

var kindStatus = map[judging.Kind]int{
	judging.KindNotFound:         http.StatusNotFound,
	judging.KindInvalidTarget:    http.StatusUnprocessableEntity,
	judging.KindOutOfRange:       http.StatusUnprocessableEntity,
	judging.KindNotAssigned:      http.StatusForbidden,
	judging.KindRoundClosed:      http.StatusConflict,
	judging.KindAlreadyFinalized: http.StatusConflict,
	judging.KindNotEligible:      http.StatusForbidden,
	judging.KindInvalidInput:     http.StatusBadRequest,
	judging.KindTransient:        http.StatusServiceUnavailable,
	judging.KindInternal:         http.StatusInternalServerError,
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	if s, ok := kindStatus[judging.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// base carries what every handler needs to report failures.
type base struct {
	logger logger.Logger
}

// fail writes an engine error as {code, message}. Internal details stay in
// the log.
func (b base) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := judging.KindOf(err)
	status := StatusFor(err)
	msg := judging.ReasonOf(err)
	switch kind {
	case judging.KindInternal:
		b.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		msg = "internal error"
	case judging.KindTransient:
		b.logger.Warn(r.Context(), "transient failure", logger.String("op", op), logger.Error(err))
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Code: string(kind), Message: msg})
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, string(judging.KindInvalidInput), err)
}

// decode reads a JSON body into v and validates it when v knows how.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		badRequest(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return false
	}
	if vv, ok := v.(interface{ Validate() error }); ok {
		if err := vv.Validate(); err != nil {
			badRequest(w, err)
			return false
		}
	}
	return true
}

// roundQuery reads hackathon_id and round from the query string. round
// defaults to 0.
func roundQuery(r *http.Request) (string, int, error) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("hackathon_id"))
	if id == "" {
		return "", 0, fmt.Errorf("%w: missing hackathon_id", types.ErrInvalidRequest)
	}
	raw := q.Get("round")
	if raw == "" {
		return id, 0, nil
	}
	round, err := strconv.Atoi(raw)
	if err != nil || round < 0 {
		return "", 0, fmt.Errorf("%w: round must be a non-negative integer", types.ErrInvalidRequest)
	}
	return id, round, nil
}
