package api

import (
	"net/http"

	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/types"
)

// SetupHandler serves hackathon and team configuration.
type SetupHandler struct {
	base
	engine Engine
}

// HandlePutHackathon handles PUT /hackathons/{id}.
func (h *SetupHandler) HandlePutHackathon(w http.ResponseWriter, r *http.Request) {
	var body model.Hackathon
	if !decode(w, r, &body) {
		return
	}
	body.ID = r.PathValue("id")
	out, err := h.engine.ConfigureHackathon(r.Context(), body)
	if err != nil {
		h.fail(w, r, "configure_hackathon", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePutTeam handles PUT /hackathons/{id}/teams/{team}.
func (h *SetupHandler) HandlePutTeam(w http.ResponseWriter, r *http.Request) {
	var body types.TeamRequest
	if !decode(w, r, &body) {
		return
	}
	team := model.Team{
		ID:          r.PathValue("team"),
		HackathonID: r.PathValue("id"),
		Members:     body.Members,
	}
	if err := h.engine.RegisterTeam(r.Context(), team); err != nil {
		h.fail(w, r, "register_team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleGetCriteria handles GET /criteria?hackathon_id=&round=.
func (h *SetupHandler) HandleGetCriteria(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.engine.Criteria(r.Context(), id, round)
	if err != nil {
		h.fail(w, r, "criteria", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
