package pipeline

import "fmt"

// Error is the typed failure a pipeline reports when it cannot produce an
// artifact. The cause is surfaced to the client as the job failure reason.
type Error struct {
	Cause string
	err   error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Cause, e.err)
	}
	return e.Cause
}

func (e *Error) Unwrap() error {
	return e.err
}

func NewError(cause string, err error) *Error {
	return &Error{Cause: cause, err: err}
}

func NewErrDataSourceUnavailable(err error) *Error {
	return NewError("street network data source unavailable", err)
}

func NewErrEmptyNetwork() *Error {
	return NewError("no street network found around the requested point", nil)
}

func NewErrNoPOIs() *Error {
	return NewError("no points of interest found within walking range", nil)
}
