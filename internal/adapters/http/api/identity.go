package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Identity headers. Authentication happens upstream; these are trusted.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Caller roles.
const (
	RoleOrganizer   = "organizer"
	RoleJudge       = "judge"
	RoleParticipant = "participant"
)

// Caller is the identity attached to a request.
type Caller struct {
	ID   string
	Role string
}

type callerKey struct{}

// CallerFrom returns the caller stored by RequireRole.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// RequireRole rejects requests without a caller id (401) or, when roles are
// given, with a role outside them (403).
func RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := Caller{
			ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		if c.ID == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", ErrUnauthenticated)
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, c.Role) {
			writeError(w, http.StatusForbidden, "forbidden",
				fmt.Errorf("%w: requires role %s", ErrForbidden, strings.Join(roles, " or ")))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, c)))
	}
}

// caller is CallerFrom for handlers already behind RequireRole.
func caller(r *http.Request) Caller {
	c, _ := CallerFrom(r.Context())
	return c
}
