package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthenticated  = errors.New("missing caller identity")
	ErrForbidden        = errors.New("forbidden")
	ErrBackpressure     = errors.New("backpressure")
	ErrDuplicateRequest = errors.New("request with this idempotency key is still in flight")
)
