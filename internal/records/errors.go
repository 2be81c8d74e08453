package records

import "errors"

var (
	// ErrDuplicatePath is returned by Insert when a record for the path already exists.
	ErrDuplicatePath = errors.New("ocr record already exists for path")
	// ErrNotFound is returned when a lookup by identifier finds nothing.
	ErrNotFound = errors.New("record not found")
	// ErrTerminal is returned by Save when the persisted record is already matched or failed.
	ErrTerminal = errors.New("record is in a terminal state")
	// ErrInvalidRecord wraps invariant violations detected before a write.
	ErrInvalidRecord = errors.New("invalid ocr record")
)
