package review

import (
	"errors"
	"fmt"
)

var (
	// ErrReviewActive is returned when a document already has an active review
	ErrReviewActive = errors.New("document already has an active review")
	// ErrSessionNotFound is returned for an unknown or finished session id
	ErrSessionNotFound = errors.New("review session not found")
)

// StateError reports an operation that is not allowed in the session's current state
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: review session is %s", e.Op, e.State)
}
