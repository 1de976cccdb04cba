package ref

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when RemoveTimeout is given a negative timeout.
	ErrInvalidArgument = errors.New("ref: invalid argument")

	// ErrCancelled is returned when a blocking remove is abandoned because its
	// context was done before a handle arrived or the timeout elapsed.
	ErrCancelled = errors.New("ref: wait cancelled")
)

// cancelled wraps the context cause so callers can match both ErrCancelled and
// context.Canceled / context.DeadlineExceeded.
func cancelled(cause error) error {
	return &cancelError{cause: cause}
}

type cancelError struct {
	cause error
}

func (e *cancelError) Error() string {
	return errors.Wrap(e.cause, ErrCancelled.Error()).Error()
}

func (e *cancelError) Is(target error) bool {
	return target == ErrCancelled
}

func (e *cancelError) Unwrap() error { return e.cause }
