package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/hackjudge/internal/domain/dedupe"
	"github.com/okian/hackjudge/internal/domain/types"
	"github.com/okian/hackjudge/pkg/logger"
)

// Idempotency headers.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// ShortlistHandler serves shortlisting. Both endpoints honour
// Idempotency-Key: a repeated key replays the first successful response.
type ShortlistHandler struct {
	base
	engine  Engine
	deduper dedupe.Deduper
}

// HandleShortlist handles POST /shortlist.
func (h *ShortlistHandler) HandleShortlist(w http.ResponseWriter, r *http.Request) {
	var body types.ShortlistRequest
	if !decode(w, r, &body) {
		return
	}
	h.idempotent(w, r, "shortlist", func() (any, error) {
		return h.engine.Shortlist(r.Context(), body.Engine())
	})
}

// HandleToggle handles POST /toggle-shortlist.
func (h *ShortlistHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var body types.ToggleRequest
	if !decode(w, r, &body) {
		return
	}
	h.idempotent(w, r, "toggle_shortlist", func() (any, error) {
		return h.engine.ToggleShortlist(r.Context(), body.SubmissionID)
	})
}

// idempotent runs fn at most once per (caller, endpoint, key). A key whose
// first request is still running gets 409; a failed request releases it.
func (h *ShortlistHandler) idempotent(w http.ResponseWriter, r *http.Request, op string, fn func() (any, error)) {
	ctx := r.Context()
	raw := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if raw == "" || h.deduper == nil {
		out, err := fn()
		if err != nil {
			h.fail(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	key := caller(r).ID + ":" + op + ":" + raw
	if h.deduper.SeenAndRecord(ctx, key) {
		body, ok := h.deduper.Result(ctx, key)
		if !ok {
			writeError(w, http.StatusConflict, "duplicate_request", ErrDuplicateRequest)
			return
		}
		h.logger.Debug(ctx, "idempotent replay", logger.String("op", op), logger.String("key", raw))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set(HeaderReplayed, "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	out, err := fn()
	if err != nil {
		h.deduper.Unrecord(ctx, key)
		h.fail(w, r, op, err)
		return
	}
	body, err := json.Marshal(out)
	if err != nil {
		h.deduper.Unrecord(ctx, key)
		h.fail(w, r, op, err)
		return
	}
	body = append(body, '\n')
	h.deduper.Complete(ctx, key, body)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
