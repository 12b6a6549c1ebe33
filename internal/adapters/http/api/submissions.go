package api

import (
	"net/http"

	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/types"
)

// SubmissionsHandler serves participant submissions.
type SubmissionsHandler struct {
	base
	engine Engine
}

// HandleSubmit handles POST /submissions. The caller is the owner.
func (h *SubmissionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var body types.SubmitRequest
	if !decode(w, r, &body) {
		return
	}
	sub, err := h.engine.Submit(r.Context(), judging.SubmitInput{
		HackathonID:        body.HackathonID,
		RoundIndex:         body.RoundIndex,
		OwnerID:            caller(r).ID,
		TeamID:             body.TeamID,
		ProblemStatementID: body.ProblemStatementID,
		Draft:              body.Draft,
	})
	if err != nil {
		h.fail(w, r, "submit", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// HandleFinalize handles POST /submissions/{id}/finalize.
func (h *SubmissionsHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	sub, err := h.engine.Finalize(r.Context(), r.PathValue("id"), caller(r).ID)
	if err != nil {
		h.fail(w, r, "finalize", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
