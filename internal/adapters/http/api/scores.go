package api

import (
	"net/http"

	"github.com/okian/hackjudge/internal/domain/types"
)

// ScoresHandler serves the score ledger.
type ScoresHandler struct {
	base
	engine Engine
}

// HandleScore handles POST /score. The caller is the judge.
func (h *ScoresHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var body types.ScoreRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.engine.SubmitScore(r.Context(), body.Input(caller(r).ID))
	if err != nil {
		h.fail(w, r, "submit_score", err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// HandleGetScores handles GET /submissions/{id}/scores.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Scores(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "scores", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
