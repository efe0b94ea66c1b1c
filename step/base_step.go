package step

import (
	"github.com/mensylisir/xmbuild/ending"
	"github.com/sirupsen/logrus"
)

// BaseStep provides the description field shared by concrete steps.
type BaseStep struct {
	DescriptionField string
}

// NewBaseStep is a helper constructor for initializing common BaseStep fields.
func NewBaseStep(description string) BaseStep {
	return BaseStep{DescriptionField: description}
}

// Description returns the description of the step.
func (bs *BaseStep) Description() string {
	return bs.DescriptionField
}

type funcStep struct {
	BaseStep
	fn func(log *logrus.Entry) *ending.Result
}

func (f *funcStep) Execute(log *logrus.Entry) *ending.Result {
	return f.fn(log)
}

// Func adapts a plain callable into a Step. A nil error is a success.
func Func(description string, fn func(log *logrus.Entry) error) Step {
	return &funcStep{
		BaseStep: NewBaseStep(description),
		fn: func(log *logrus.Entry) *ending.Result {
			return ending.FromError(fn(log), description)
		},
	}
}

// FuncResult adapts a callable that builds its own Result.
func FuncResult(description string, fn func(log *logrus.Entry) *ending.Result) Step {
	return &funcStep{BaseStep: NewBaseStep(description), fn: fn}
}

// Noop returns a step that always succeeds.
func Noop(description string) Step {
	return FuncResult(description, func(*logrus.Entry) *ending.Result {
		return ending.Success("", nil)
	})
}

// WithRollback decorates s so that it advertises rollback as its own undo
// action.
func WithRollback(s, rollback Step) Step {
	return &decorated{Step: s, rollback: rollback, completion: completionOf(s)}
}

// WithCompletion decorates s with a completion action.
func WithCompletion(s, completion Step) Step {
	return &decorated{Step: s, rollback: rollbackOf(s), completion: completion}
}

type decorated struct {
	Step
	rollback   Step
	completion Step
}

func (d *decorated) Rollback() Step   { return d.rollback }
func (d *decorated) Completion() Step { return d.completion }
func (d *decorated) Unwrap() Step     { return d.Step }

// Unwrap strips decorators from s and returns the step they wrap. Steps that
// do not wrap another step are returned unchanged.
func Unwrap(s Step) Step {
	for {
		w, ok := s.(interface{ Unwrap() Step })
		if !ok {
			return s
		}
		inner := w.Unwrap()
		if inner == nil {
			return s
		}
		s = inner
	}
}

func rollbackOf(s Step) Step {
	if r, ok := s.(Rollbacker); ok {
		return r.Rollback()
	}
	return nil
}

func completionOf(s Step) Step {
	if c, ok := s.(Completer); ok {
		return c.Completion()
	}
	return nil
}
