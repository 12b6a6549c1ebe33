package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrNoCriteria       = errors.New("round has no criteria")
	ErrMissingCriterion = errors.New("missing criterion score")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrOutOfRange       = errors.New("score out of range")
)
