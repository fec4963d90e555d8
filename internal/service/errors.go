// Package service implements the transactional lending engine.  Every
// operation runs inside one store transaction; any validation failure
// rolls the whole transaction back.
package service

import "errors"

// Error kinds raised by the lending engine.  Handlers match them with
// errors.Is: ErrNotFound maps to 404, ErrInvalidState and
// ErrLimitExceeded map to 400.  Anything else is an unexpected store
// failure and maps to 500; callers may retry the whole operation.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Error pairs a taxonomy kind with a message naming the violated rule.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrInvalidState) and friends see the kind.
func (e *Error) Unwrap() error { return e.Kind }

func notFound(entity string) error {
	return &Error{Kind: ErrNotFound, Message: entity + " not found"}
}

func invalidState(msg string) error {
	return &Error{Kind: ErrInvalidState, Message: msg}
}

func limitExceeded(msg string) error {
	return &Error{Kind: ErrLimitExceeded, Message: msg}
}
