package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/hackjudge/internal/domain/types"
)

// EligibilityHandler serves round progression reads.
type EligibilityHandler struct {
	base
	engine Engine
}

// HandleEligibility handles GET /eligibility?hackathon_id=&round=&subject_id=.
// subject_id is a participant or team id and defaults to the caller.
func (h *EligibilityHandler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	subject := strings.TrimSpace(r.URL.Query().Get("subject_id"))
	c := caller(r)
	if subject == "" {
		subject = c.ID
	}
	if c.Role == RoleParticipant && subject != c.ID {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Errorf("%w: participants may only check themselves", ErrForbidden))
		return
	}
	d, err := h.engine.IsEligible(r.Context(), id, round, subject)
	if err != nil {
		h.fail(w, r, "is_eligible", err)
		return
	}
	writeJSON(w, http.StatusOK, types.EligibilityResponse{
		HackathonID: id,
		RoundIndex:  round,
		SubjectID:   subject,
		Decision:    d,
	})
}

// HandleRoundProgress handles GET /round-progress?hackathon_id=&round=.
func (h *EligibilityHandler) HandleRoundProgress(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.engine.RoundProgress(r.Context(), id, round)
	if err != nil {
		h.fail(w, r, "round_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
