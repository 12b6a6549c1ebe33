package judging

import (
	"errors"
	"fmt"

	"github.com/okian/hackjudge/internal/adapters/lock"
	"github.com/okian/hackjudge/internal/adapters/repository"
)

// Kind is the machine-readable class of a judging error.
type Kind string

// Error kinds.
const (
	KindNotFound         Kind = "not_found"
	KindInvalidTarget    Kind = "invalid_target"
	KindOutOfRange       Kind = "out_of_range"
	KindNotAssigned      Kind = "not_assigned"
	KindRoundClosed      Kind = "round_closed"
	KindAlreadyFinalized Kind = "already_finalized"
	KindNotEligible      Kind = "not_eligible"
	KindInvalidInput     Kind = "invalid_input"
	KindTransient        Kind = "transient"
	KindInternal         Kind = "internal"
)

// Sentinel kinds for judging errors. These allow errors.Is from callers.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrOutOfRange       = errors.New("out of range")
	ErrNotAssigned      = errors.New("not assigned")
	ErrRoundClosed      = errors.New("round closed")
	ErrAlreadyFinalized = errors.New("already finalized")
	ErrNotEligible      = errors.New("not eligible")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTransient        = errors.New("transient failure")
	ErrInternal         = errors.New("internal error")
)

var kindErrors = map[Kind]error{
	KindNotFound:         ErrNotFound,
	KindInvalidTarget:    ErrInvalidTarget,
	KindOutOfRange:       ErrOutOfRange,
	KindNotAssigned:      ErrNotAssigned,
	KindRoundClosed:      ErrRoundClosed,
	KindAlreadyFinalized: ErrAlreadyFinalized,
	KindNotEligible:      ErrNotEligible,
	KindInvalidInput:     ErrInvalidInput,
	KindTransient:        ErrTransient,
	KindInternal:         ErrInternal,
}

// Error carries a kind, a human-readable reason and the operation that failed.
type Error struct {
	Op     string
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if k, ok := kindErrors[e.Kind]; ok {
		out = append(out, k)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(op string, kind Kind, reason string, err error) *Error {
	return &Error{Op: op, Kind: kind, Reason: reason, Err: err}
}

// KindOf classifies any error returned by the engine.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	if errors.Is(err, repository.ErrTransient) || errors.Is(err, lock.ErrNotAcquired) {
		return KindTransient
	}
	return KindInternal
}

// ReasonOf returns the human-readable reason of err.
func ReasonOf(err error) string {
	var je *Error
	if errors.As(err, &je) && je.Reason != "" {
		return je.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// storeErr lifts a store failure into a judging error. notFound is the
// reason used when the store reports a missing record.
func storeErr(op string, err error, notFound string) error {
	var je *Error
	switch {
	case errors.As(err, &je):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return newError(op, KindNotFound, notFound, err)
	case errors.Is(err, repository.ErrTransient):
		return newError(op, KindTransient, "storage temporarily unavailable", err)
	case errors.Is(err, lock.ErrNotAcquired):
		return newError(op, KindTransient, "round is busy, retry later", err)
	default:
		return newError(op, KindInternal, "internal error", err)
	}
}
