package killer

import "github.com/pkg/errors"

var (
	// ErrPermissionDenied means the caller may not force-stop packages
	ErrPermissionDenied = errors.New("caller lacks force-stop authority")

	// ErrLockTaskActive means the session is pinned to a single task
	ErrLockTaskActive = errors.New("single-task mode is active")

	// ErrNoTargetFound means no eligible foreground package exists
	ErrNoTargetFound = errors.New("no eligible foreground package")

	// ErrRemoteService wraps any collaborator failure or timeout
	ErrRemoteService = errors.New("remote service failure")
)

// ErrNotFound is returned by collaborators when a package or task is unknown
var ErrNotFound = errors.New("not found")

type remoteError struct {
	op  string
	err error
}

func (e *remoteError) Error() string {
	return e.op + ": " + ErrRemoteService.Error() + ": " + e.err.Error()
}

func (e *remoteError) Is(target error) bool {
	return target == ErrRemoteService
}

func (e *remoteError) Unwrap() error {
	return e.err
}

// remoteFailure tags err as a RemoteServiceFailure raised by op
func remoteFailure(op string, err error) error {
	return &remoteError{op: op, err: err}
}

// reasonError maps a terminal reason to its sentinel error
func reasonError(r Reason) error {
	switch r {
	case ReasonPermissionDenied:
		return ErrPermissionDenied
	case ReasonLockTaskActive:
		return ErrLockTaskActive
	case ReasonNoneFound, ReasonProtected:
		return ErrNoTargetFound
	default:
		return nil
	}
}
