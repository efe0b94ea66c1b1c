package ending

import (
	"fmt"

	"github.com/pkg/errors"
)

// ResultStatus is the outcome of a single step invocation.
type ResultStatus int

const (
	ResultSuccess ResultStatus = iota // Step completed
	ResultFailure                     // Step failed, or panicked
)

// String returns a string representation of the ResultStatus.
func (s ResultStatus) String() string {
	switch s {
	case ResultSuccess:
		return "SUCCESS"
	case ResultFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("UNKNOWN_STATUS_%d", int(s))
	}
}

// Result holds the outcome of a step: a status, a human-readable message and
// an optional opaque payload. Err carries the underlying cause of a failure.
type Result struct {
	Status  ResultStatus
	Message string
	Data    any
	Err     error
}

// Success creates a successful Result.
func Success(message string, data any) *Result {
	return &Result{Status: ResultSuccess, Message: message, Data: data}
}

// Failure creates a failed Result. An empty message falls back to the
// error text.
func Failure(err error, message string) *Result {
	if message == "" && err != nil {
		message = err.Error()
	}
	if err == nil {
		err = errors.New(message)
	}
	return &Result{Status: ResultFailure, Message: message, Err: err}
}

// Failuref creates a failed Result from a format string.
func Failuref(format string, args ...any) *Result {
	err := errors.Errorf(format, args...)
	return &Result{Status: ResultFailure, Message: err.Error(), Err: err}
}

// FromError maps a plain error return onto a Result: nil is a success.
func FromError(err error, message string) *Result {
	if err != nil {
		return Failure(err, "")
	}
	return Success(message, nil)
}

// Succeeded reports whether r is a non-nil successful result.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == ResultSuccess
}

// Failed reports whether r is nil or carries a failure status.
func (r *Result) Failed() bool {
	return !r.Succeeded()
}

// Cause returns the failure cause, or nil for successful results.
func (r *Result) Cause() error {
	if r == nil {
		return errors.New("no result")
	}
	if r.Status == ResultSuccess {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return errors.New(r.Message)
}

func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Message == "" {
		return r.Status.String()
	}
	return fmt.Sprintf("%s: %s", r.Status, r.Message)
}
