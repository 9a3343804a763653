package session

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded refuses a new session while the pending count is
	// at the configured maximum.
	ErrCapacityExceeded = errors.New("pending session capacity exceeded")

	// ErrNotFound means the session or question does not exist, or has
	// been purged.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means the requested state change is not allowed
	// from the session's current status.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSessionClosed means the session is completed or expired and
	// accepts no more changes.
	ErrSessionClosed = errors.New("session closed")

	// ErrStaleWrite is matched by every *StaleWriteError.
	ErrStaleWrite = errors.New("question already answered")
)

// StaleWriteError rejects a second answer to the same question. Existing
// is the answer that was kept.
type StaleWriteError struct {
	SessionID  string
	QuestionID string
	Existing   Answer
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("question %s of session %s already answered at %s",
		e.QuestionID, e.SessionID, e.Existing.AnsweredAt.Format("2006-01-02 15:04:05"))
}

func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}
