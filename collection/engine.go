package collection

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/hook"
	"github.com/mensylisir/xmbuild/step"
	xmtime "github.com/mensylisir/xmbuild/time"
)

// pending is a rollback or completion queued during a run.
type pending struct {
	label string
	step  step.Step
}

type engine struct {
	c           *Collection
	log         *logrus.Entry
	agg         *ending.Aggregate
	rollbacks   []pending
	completions []pending
}

// Run executes every entry in order. On the first failure it stops, runs the
// pending rollbacks newest first, then the pending completions oldest first.
// Completions also run when everything succeeds. Running again re-executes
// every entry from scratch.
func (c *Collection) Run() *ending.Aggregate {
	return c.run(c.baseLog(), false).agg
}

// Execute implements step.Step, so a collection can be used wherever a step
// is expected. Registered as an entry of another collection it is run as a
// nested collection instead.
func (c *Collection) Execute(log *logrus.Entry) *ending.Result {
	return c.run(log.WithField(common.CollectionName, c.Path()), false).agg.Result
}

func (c *Collection) run(log *logrus.Entry, nested bool) *engine {
	e := &engine{c: c, log: log, agg: ending.NewAggregate()}
	for _, h := range c.handles {
		h.reset()
	}

	start := time.Now()
	c.setPhase(PhaseExecuting, log)
	failed := e.execute()
	if failed {
		c.setPhase(PhaseRollingBack, log)
		e.rollback()
	}
	if failed || !nested {
		c.setPhase(PhaseCompleting, log)
		e.complete()
	}
	c.setPhase(PhaseFinished, log)

	c.opts.recorder.RunFinished(c.Path(), e.agg.Status.String())
	if failed {
		log.Errorf("Collection %s failed at entry %s after %s: %s", c.Path(), e.agg.FailedEntry, xmtime.Elapsed(start), e.agg.Message)
	} else {
		log.Infof("Collection %s completed successfully in %s.", c.Path(), xmtime.Elapsed(start))
	}
	return e
}

// execute runs the entries and reports whether one of them failed.
func (e *engine) execute() bool {
	entries := append([]*entry(nil), e.c.entries...)
	for i, en := range entries {
		label := en.label(i)
		log := e.log.WithFields(logrus.Fields{
			common.EntryName: label,
			"entry_index":    fmt.Sprintf("%d/%d", i+1, len(entries)),
		})
		log.Infof("Executing entry: %s (%s)", label, en.step.Description())

		start := time.Now()
		var res *ending.Result
		if nested, ok := step.Unwrap(en.step).(*Collection); ok {
			res = e.runNested(nested, label, en.name, log)
		} else {
			res = invoke(en.step, log)
		}
		e.c.opts.recorder.EntryFinished(e.c.Path(), res.Status.String(), time.Since(start))
		e.agg.Record(en.name, res)
		e.agg.Result = res

		if res.Failed() {
			log.Errorf("Entry %s failed: %s. Halting collection execution.", label, res.Message)
			e.agg.FailedEntry = label
			return true
		}
		log.Infof("Entry %s completed successfully in %s.", label, xmtime.Elapsed(start))

		for _, r := range en.rollbacks {
			e.rollbacks = append(e.rollbacks, pending{label: label, step: r})
		}
		for _, cp := range en.completions {
			e.completions = append(e.completions, pending{label: label, step: cp})
		}
	}
	return false
}

// runNested runs a child collection. On success its unconsumed actions are
// adopted at the position of the nested entry; on failure the child has
// already unwound itself.
func (e *engine) runNested(nested *Collection, label, name string, log *logrus.Entry) *ending.Result {
	sub := nested.run(log.WithField(common.CollectionName, nested.Path()), true)
	e.agg.RecordNested(name, sub.agg)
	if sub.agg.Failed() {
		return sub.agg.Result
	}
	for _, p := range sub.rollbacks {
		e.rollbacks = append(e.rollbacks, pending{label: label + ending.PathSeparator + p.label, step: p.step})
	}
	for _, p := range sub.completions {
		e.completions = append(e.completions, pending{label: label + ending.PathSeparator + p.label, step: p.step})
	}
	return sub.agg.Result
}

func (e *engine) rollback() {
	for i := len(e.rollbacks) - 1; i >= 0; i-- {
		p := e.rollbacks[i]
		log := e.log.WithFields(logrus.Fields{common.EntryName: p.label, common.PhaseName: ending.PhaseRollback})
		log.Infof("Rolling back entry %s (%s)", p.label, p.step.Description())
		res := invoke(p.step, log)
		e.c.opts.recorder.RollbackFinished(e.c.Path(), res.Status.String())
		if res.Failed() {
			log.Warnf("Rollback of entry %s failed: %s", p.label, res.Message)
			e.agg.Diagnose(ending.PhaseRollback, p.label, res)
		}
	}
	e.rollbacks = nil
}

func (e *engine) complete() {
	for _, p := range e.completions {
		log := e.log.WithFields(logrus.Fields{common.EntryName: p.label, common.PhaseName: ending.PhaseCompletion})
		log.Debugf("Completing entry %s (%s)", p.label, p.step.Description())
		res := invoke(p.step, log)
		e.c.opts.recorder.CompletionFinished(e.c.Path(), res.Status.String())
		if res.Failed() {
			log.Warnf("Completion for entry %s failed: %s", p.label, res.Message)
			e.agg.Diagnose(ending.PhaseCompletion, p.label, res)
		}
	}
	e.completions = nil
}

// call guards one step invocation: panics and nil results become failures.
type call struct {
	step step.Step
	log  *logrus.Entry
	res  *ending.Result
}

func (c *call) Try() error {
	c.res = c.step.Execute(c.log)
	if c.res == nil {
		return ErrNoResult
	}
	return nil
}

func (c *call) Catch(err error) error {
	var p *hook.PanicError
	if errors.As(err, &p) {
		c.log.Errorf("Step %q panicked: %v", c.step.Description(), p.Value)
		c.res = ending.Failure(err, fmt.Sprintf("step %q panicked: %v", c.step.Description(), p.Value))
		return err
	}
	c.res = ending.Failure(err, "")
	return err
}

func (c *call) Finally() {}

func invoke(s step.Step, log *logrus.Entry) *ending.Result {
	c := &call{step: s, log: log}
	_ = hook.Call(c)
	return c.res
}
