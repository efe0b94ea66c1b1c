package hook

import (
	"fmt"

	"github.com/pkg/errors"
)

// Interface is a guarded unit of work: Try runs it, Catch maps its error,
// Finally always runs last.
type Interface interface {
	Try() error
	Catch(err error) error
	Finally()
}

// PanicError is returned by Call when Try panics.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic occurred during hook execution: %v", p.Value)
}

// Call runs hook.Try. A panic is recovered and passed to Catch as a
// *PanicError, so callers see panics and errors the same way.
func Call(hook Interface) (err error) {
	if hook == nil {
		return errors.New("hook cannot be nil")
	}

	defer hook.Finally()

	defer func() {
		if r := recover(); r != nil {
			err = hook.Catch(errors.WithStack(&PanicError{Value: r}))
		}
	}()

	if tryErr := hook.Try(); tryErr != nil {
		return hook.Catch(tryErr)
	}
	return nil
}

// Func wraps plain functions into an Interface. Nil fields are skipped.
type Func struct {
	TryFn     func() error
	CatchFn   func(err error) error
	FinallyFn func()
}

func (f Func) Try() error {
	if f.TryFn == nil {
		return nil
	}
	return f.TryFn()
}

func (f Func) Catch(err error) error {
	if f.CatchFn == nil {
		return err
	}
	return f.CatchFn(err)
}

func (f Func) Finally() {
	if f.FinallyFn != nil {
		f.FinallyFn()
	}
}
