package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition reports a submission status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[SubmissionStatus][]SubmissionStatus{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusShortlisted, StatusRejected},
	StatusShortlisted: {StatusRejected},
	StatusRejected:    {StatusShortlisted},
}

// Transition validates a status change. Every status write goes through here.
func Transition(from, to SubmissionStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Apply moves s to status to, returning the updated copy.
func (s Submission) Apply(to SubmissionStatus) (Submission, error) {
	if err := Transition(s.Status, to); err != nil {
		return s, err
	}
	s.Status = to
	return s, nil
}
