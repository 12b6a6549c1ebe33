package api

import (
	"net/http"
	"strings"

	"github.com/okian/hackjudge/internal/domain/types"
)

// AssignmentsHandler serves judge assignment management.
type AssignmentsHandler struct {
	base
	engine Engine
}

// HandleAssign handles POST /assign-judges.
func (h *AssignmentsHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var body types.AssignRequest
	if !decode(w, r, &body) {
		return
	}
	a, err := h.engine.Assign(r.Context(), body.JudgeID, body.HackathonID, body.RoundIndex, body.Targets)
	if err != nil {
		h.fail(w, r, "assign", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleAutoDistribute handles POST /auto-distribute.
func (h *AssignmentsHandler) HandleAutoDistribute(w http.ResponseWriter, r *http.Request) {
	var body types.AutoDistributeRequest
	if !decode(w, r, &body) {
		return
	}
	out, err := h.engine.AutoDistribute(r.Context(), body.HackathonID, body.RoundIndex, body.JudgeIDs)
	if err != nil {
		h.fail(w, r, "auto_distribute", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleStatus handles POST /assignments/status. Only the assigned judge
// may accept or decline.
func (h *AssignmentsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var body types.AssignmentStatusRequest
	if !decode(w, r, &body) {
		return
	}
	c := caller(r)
	a, err := h.engine.RespondToAssignment(r.Context(), c.ID, body.JudgeID, body.HackathonID, body.RoundIndex, body.Status)
	if err != nil {
		h.fail(w, r, "respond_assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleList handles GET /assignments?hackathon_id=&round=[&judge_id=].
// Judges only see their own assignment.
func (h *AssignmentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := h.engine.Assignments(r.Context(), id, round)
	if err != nil {
		h.fail(w, r, "assignments", err)
		return
	}
	judge := strings.TrimSpace(r.URL.Query().Get("judge_id"))
	if c := caller(r); c.Role == RoleJudge {
		judge = c.ID
	}
	if judge != "" {
		filtered := list[:0]
		for _, a := range list {
			if a.JudgeID == judge {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUnassign handles DELETE /assignments?hackathon_id=&round=&judge_id=.
func (h *AssignmentsHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	id, round, err := roundQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	judge := strings.TrimSpace(r.URL.Query().Get("judge_id"))
	if judge == "" {
		badRequest(w, types.ErrInvalidRequest)
		return
	}
	if err := h.engine.Unassign(r.Context(), judge, id, round); err != nil {
		h.fail(w, r, "unassign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
