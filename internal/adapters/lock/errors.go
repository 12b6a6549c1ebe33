package lock

import "errors"

// Sentinel kinds for lock errors.
var (
	ErrNotAcquired = errors.New("lock not acquired")
)
