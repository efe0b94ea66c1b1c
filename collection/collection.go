package collection

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/step"
)

// unnamedGroup labels nested collections registered without a name.
const unnamedGroup = "group"

type entry struct {
	name        string
	step        step.Step
	rollbacks   []step.Step
	completions []step.Step
}

// label names the entry in logs and diagnostics.
func (e *entry) label(pos int) string {
	if e.name != "" {
		return e.name
	}
	return fmt.Sprintf("#%d", pos+1)
}

// adoptable steps take ownership bookkeeping when registered, and give it
// back when their entry is dropped.
type adoptable interface {
	adopt(owner *Collection) error
	release(owner *Collection)
}

// Collection is an ordered list of entries executed together by Run.
// Registration calls are not safe for concurrent use, and a collection must
// not be run concurrently with itself.
type Collection struct {
	name    string
	entries []*entry
	index   map[string]int
	last    *entry
	parent  *Collection
	handles []*Handle
	opts    options
	phase   atomic.Int32
}

// New creates an empty collection.
func New(name string, opts ...Option) *Collection {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection{name: name, index: make(map[string]int), opts: o}
}

// Child creates an unattached collection that inherits every option but the
// logger. Register it with Add to nest it.
func (c *Collection) Child(name string) *Collection {
	o := c.opts
	o.log = nil
	return &Collection{name: name, index: make(map[string]int), opts: o}
}

func (c *Collection) Name() string { return c.name }

// Parent returns the collection this one is nested in, if any.
func (c *Collection) Parent() *Collection { return c.parent }

// Path names the collection including its ancestors, e.g. "release/build".
func (c *Collection) Path() string {
	name := c.name
	if name == "" {
		name = unnamedGroup
	}
	if c.parent == nil {
		return name
	}
	return c.parent.Path() + ending.PathSeparator + name
}

// Description implements step.Step.
func (c *Collection) Description() string {
	return fmt.Sprintf("collection %s (%d entries)", c.Path(), len(c.entries))
}

func (c *Collection) Len() int { return len(c.entries) }

// Names returns the entry names in execution order; unnamed entries are
// skipped.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.index))
	for _, e := range c.entries {
		if e.name != "" {
			names = append(names, e.name)
		}
	}
	return names
}

// Add appends a step. name may be empty; a non-empty name must be unique in
// this collection. Rollback and completion facets of s are attached
// immediately.
func (c *Collection) Add(name string, s step.Step) error {
	return c.insert("add", len(c.entries), name, s)
}

// AddFunc appends a plain callable.
func (c *Collection) AddFunc(name, description string, fn func(log *logrus.Entry) error) error {
	if fn == nil {
		return c.regErr("add", name, ErrNilStep)
	}
	return c.Add(name, step.Func(description, fn))
}

// AddAll appends steps as one nested collection entry.
func (c *Collection) AddAll(name string, steps ...step.Step) error {
	if _, dup := c.index[name]; dup && name != "" {
		return c.regErr("add", name, ErrDuplicateName)
	}
	group := c.Child(name)
	for _, s := range steps {
		if err := group.Add("", s); err != nil {
			group.discard()
			return err
		}
	}
	if err := c.Add(name, group); err != nil {
		group.discard()
		return err
	}
	return nil
}

// Before inserts s immediately before the entry called target.
func (c *Collection) Before(target, name string, s step.Step) error {
	pos, ok := c.index[target]
	if !ok {
		return c.regErr("before", target, ErrUnknownName)
	}
	return c.insert("before", pos, name, s)
}

// After inserts s immediately after the entry called target.
func (c *Collection) After(target, name string, s step.Step) error {
	pos, ok := c.index[target]
	if !ok {
		return c.regErr("after", target, ErrUnknownName)
	}
	return c.insert("after", pos+1, name, s)
}

// AddRollback attaches a rollback action to the most recently added entry.
func (c *Collection) AddRollback(s step.Step) error {
	if c.last == nil {
		return c.regErr("add rollback", "", ErrNoEntry)
	}
	if s == nil {
		return c.regErr("add rollback", c.last.name, ErrNilStep)
	}
	c.last.rollbacks = append(c.last.rollbacks, s)
	return nil
}

// AddCompletion attaches a completion action to the most recently added
// entry.
func (c *Collection) AddCompletion(s step.Step) error {
	if c.last == nil {
		return c.regErr("add completion", "", ErrNoEntry)
	}
	if s == nil {
		return c.regErr("add completion", c.last.name, ErrNilStep)
	}
	c.last.completions = append(c.last.completions, s)
	return nil
}

// AddRollbackTo attaches a rollback action to a named entry.
func (c *Collection) AddRollbackTo(name string, s step.Step) error {
	e, err := c.lookup("add rollback", name, s)
	if err != nil {
		return err
	}
	e.rollbacks = append(e.rollbacks, s)
	return nil
}

// AddCompletionTo attaches a completion action to a named entry.
func (c *Collection) AddCompletionTo(name string, s step.Step) error {
	e, err := c.lookup("add completion", name, s)
	if err != nil {
		return err
	}
	e.completions = append(e.completions, s)
	return nil
}

// Remove drops a named entry together with its attachments.
func (c *Collection) Remove(name string) error {
	pos, ok := c.index[name]
	if !ok {
		return c.regErr("remove", name, ErrUnknownName)
	}
	e := c.entries[pos]
	c.entries = append(c.entries[:pos], c.entries[pos+1:]...)
	if c.last == e {
		c.last = nil
	}
	c.disown(e)
	c.reindex()
	return nil
}

// disown undoes the ownership taken when e was registered.
func (c *Collection) disown(e *entry) {
	switch inner := step.Unwrap(e.step).(type) {
	case *Collection:
		if inner.parent == c {
			inner.parent = nil
		}
	case adoptable:
		inner.release(c)
	}
}

// discard disowns every entry of a collection that is being thrown away.
func (c *Collection) discard() {
	for _, e := range c.entries {
		c.disown(e)
	}
	c.entries = nil
	c.last = nil
	c.reindex()
}

func (c *Collection) lookup(op, name string, s step.Step) (*entry, error) {
	pos, ok := c.index[name]
	if !ok {
		return nil, c.regErr(op, name, ErrUnknownName)
	}
	if s == nil {
		return nil, c.regErr(op, name, ErrNilStep)
	}
	return c.entries[pos], nil
}

func (c *Collection) insert(op string, pos int, name string, s step.Step) error {
	if s == nil {
		return c.regErr(op, name, ErrNilStep)
	}
	if name != "" {
		if _, dup := c.index[name]; dup {
			return c.regErr(op, name, ErrDuplicateName)
		}
	}
	inner := step.Unwrap(s)
	nested, isCollection := inner.(*Collection)
	if isCollection {
		for a := c; a != nil; a = a.parent {
			if a == nested {
				return c.regErr(op, name, ErrSelfNesting)
			}
		}
		if nested.parent != nil {
			return c.regErr(op, name, ErrAlreadyOwned)
		}
	}
	if a, ok := inner.(adoptable); ok {
		if err := a.adopt(c); err != nil {
			return c.regErr(op, name, err)
		}
	}
	if isCollection {
		nested.parent = c
	}

	caps := step.CapabilitiesOf(s)
	e := &entry{name: name, step: s}
	if caps.Rollback != nil {
		e.rollbacks = append(e.rollbacks, caps.Rollback)
	}
	if caps.Completion != nil {
		e.completions = append(e.completions, caps.Completion)
	}

	c.entries = append(c.entries, nil)
	copy(c.entries[pos+1:], c.entries[pos:])
	c.entries[pos] = e
	c.last = e
	c.reindex()
	return nil
}

func (c *Collection) reindex() {
	clear(c.index)
	for i, e := range c.entries {
		if e.name != "" {
			c.index[e.name] = i
		}
	}
}

// baseLog is the log entry a top-level run starts from.
func (c *Collection) baseLog() *logrus.Entry {
	if c.opts.log != nil {
		return c.opts.log.WithField(common.CollectionName, c.Path())
	}
	return logger.Log.ForCollection(c.Path())
}

// Phase reports where the latest run is, or ended.
func (c *Collection) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Collection) setPhase(p Phase, log *logrus.Entry) {
	c.phase.Store(int32(p))
	log.WithField(common.PhaseName, p.String()).Debugf("Collection %s entered phase %s", c.Path(), p)
	if c.opts.observer != nil {
		c.opts.observer(c.Path(), p)
	}
}
