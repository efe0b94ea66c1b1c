package collection

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateName = errors.New("duplicate entry name")
	ErrUnknownName   = errors.New("unknown entry name")
	ErrNoEntry       = errors.New("no entry to attach to")
	ErrNilStep       = errors.New("step is nil")
	ErrAlreadyOwned  = errors.New("already owned by another collection")
	ErrSelfNesting   = errors.New("collection cannot contain itself")
	ErrNoResult      = errors.New("step returned no result")
)

// RegistrationError is returned when an entry or attachment cannot be
// registered. It wraps one of the Err* sentinels.
type RegistrationError struct {
	Collection string
	Op         string
	Name       string
	Err        error
}

func (e *RegistrationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("collection %q: %s: %v", e.Collection, e.Op, e.Err)
	}
	return fmt.Sprintf("collection %q: %s %q: %v", e.Collection, e.Op, e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

func (c *Collection) regErr(op, name string, err error) error {
	return &RegistrationError{Collection: c.Path(), Op: op, Name: name, Err: err}
}
