package step

import (
	"github.com/mensylisir/xmbuild/ending"
	"github.com/sirupsen/logrus"
)

// Step is a single unit of deferred work. Steps are registered into a
// collection and executed later, at most once per run.
type Step interface {
	// Description returns a human-readable description of what the step does.
	Description() string

	// Execute performs the step. The logger entry is pre-configured with
	// collection and entry context. A nil result counts as a failure.
	Execute(log *logrus.Entry) *ending.Result
}

// Rollbacker is implemented by steps that know how to undo themselves.
type Rollbacker interface {
	Rollback() Step
}

// Completer is implemented by steps that need an action to run after the
// whole collection has finished, whatever its outcome.
type Completer interface {
	Completion() Step
}

// Capabilities are the optional facets of a step, resolved once when the
// step is registered.
type Capabilities struct {
	Rollback   Step
	Completion Step
}

// CapabilitiesOf resolves the facets a step advertises.
func CapabilitiesOf(s Step) Capabilities {
	var c Capabilities
	if r, ok := s.(Rollbacker); ok {
		c.Rollback = r.Rollback()
	}
	if cp, ok := s.(Completer); ok {
		c.Completion = cp.Completion()
	}
	return c
}
