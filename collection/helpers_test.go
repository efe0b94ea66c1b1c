package collection

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/step"
)

// trace records the order in which test steps run.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(event string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

func (tr *trace) ok(event string) step.Step {
	return step.FuncResult(event, func(*logrus.Entry) *ending.Result {
		tr.add(event)
		return ending.Success(event+" done", event)
	})
}

func (tr *trace) fail(event string) step.Step {
	return step.FuncResult(event, func(*logrus.Entry) *ending.Result {
		tr.add(event)
		return ending.Failure(errors.New(event+" broke"), "")
	})
}

// undoable is a step with its own rollback facet.
type undoable struct {
	step.BaseStep
	tr *trace
}

func (u *undoable) Execute(*logrus.Entry) *ending.Result {
	u.tr.add(u.Description())
	return ending.Success("", nil)
}

func (u *undoable) Rollback() step.Step {
	return u.tr.ok("undo " + u.Description())
}

func quiet() Option {
	return WithLogger(logger.Discard())
}
