package session

import "errors"

var (
	// ErrSubmissionInFlight is returned when submit is called while a submission is pending.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrNotReady is returned when submit is called before every step was completed.
	ErrNotReady = errors.New("session is not ready to submit")
	// ErrNotAtStep is returned when a step operation is attempted outside a step.
	ErrNotAtStep = errors.New("session is not at a step")
	// ErrSessionDone is returned for edits after a successful submission.
	ErrSessionDone = errors.New("session already submitted")
	// ErrSessionClosed is returned for any operation on a closed session, and for
	// submission results that arrived after it was closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownField is returned when a key is not declared by the flow.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownRowSet is returned for operations on an undeclared row set.
	ErrUnknownRowSet = errors.New("unknown row set")
	// ErrUnknownColumn is returned when a row is edited on a column it does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrRowOutOfRange is returned for a row position outside the set.
	ErrRowOutOfRange = errors.New("row out of range")
)
