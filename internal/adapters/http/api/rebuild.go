package api

import (
	"errors"
	"net/http"

	"github.com/okian/hackjudge/internal/adapters/mq/queue"
	"github.com/okian/hackjudge/internal/domain/types"
)

// RebuildHandler queues aggregate rebuilds.
type RebuildHandler struct {
	base
	rebuilds RebuildEnqueuer
}

// HandleRebuild handles POST /rebuild-aggregates.
func (h *RebuildHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	var body types.RebuildRequest
	if !decode(w, r, &body) {
		return
	}
	n, err := h.rebuilds.EnqueueRebuild(r.Context(), body.HackathonID, body.RoundIndex)
	if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "backpressure", errors.Join(ErrBackpressure, err))
		return
	}
	if err != nil {
		h.fail(w, r, "rebuild_aggregates", err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.RebuildResponse{
		HackathonID: body.HackathonID,
		RoundIndex:  body.RoundIndex,
		Enqueued:    n,
	})
}
