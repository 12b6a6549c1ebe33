package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, hackathonID string, round, limit int) ([]judging.LeaderboardEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	base
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?hackathon_id=&round=[&limit=N].
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			badRequest(w, fmt.Errorf("%w: limit must be a positive integer", types.ErrInvalidRequest))
			return
		}
		if limit > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded",
				fmt.Errorf("%w: limit must not exceed %d", types.ErrInvalidRequest, h.maxLimit))
			return
		}
	}
	entries, err := h.deps.Leaderboard(r.Context(), id, round, limit)
	if err != nil {
		h.fail(w, r, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{HackathonID: id, RoundIndex: round, Entries: entries})
}
