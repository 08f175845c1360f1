package eventclient

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the client. Wrap with fmt.Errorf's %w so
// callers can use errors.Is against these values.
var (
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrNoConnection              = errors.New("no connection")
	ErrConnectionClosed          = errors.New("connection closed")
	ErrCannotEstablishConnection = errors.New("cannot establish connection")
	ErrNotAuthenticated          = errors.New("not authenticated")
	ErrOperationTimeout          = errors.New("operation timeout")
	ErrRetryLimitReached         = errors.New("retry limit reached")
	ErrServerError               = errors.New("server error")
	ErrBadRequest                = errors.New("bad request")
	ErrWrongExpectedVersion      = errors.New("wrong expected version")
	ErrStreamDeleted             = errors.New("stream deleted")
	ErrAccessDenied              = errors.New("access denied")
	ErrCommitTimeout             = errors.New("commit timeout")

	// ErrAlreadyActive is reported through Listener.ErrorOccurred when
	// Connect is called on a client that is already connecting or
	// connected; that call is otherwise ignored.
	ErrAlreadyActive = errors.New("client already active")
)

// wrapError attaches detail to a sentinel error while keeping it matchable
// with errors.Is. It generalizes the teacher's NewError(code, detail...)
// factory to the errors.Is-friendly wrapping idiom.
func wrapError(sentinel error, detail ...interface{}) error {
	if len(detail) == 0 {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprint(detail...))
}
