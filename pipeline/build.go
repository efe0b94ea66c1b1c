package pipeline

import (
	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/runtime"
	"github.com/mensylisir/xmbuild/step"
)

// Build turns a loaded plan into a collection ready to run. The runtime
// supplies the work directory, the temp base and the host runners. opts are
// applied after the temp base taken from the runtime.
func Build(p *config.Plan, rt runtime.Runtime, opts ...collection.Option) (*collection.Collection, error) {
	opts = append([]collection.Option{collection.WithTempBase(rt.TempBase())}, opts...)
	root := collection.New(p.Metadata.Name, opts...)
	b := &builder{rt: rt}
	if err := b.entries(root, p.Spec.Entries, newScope(nil), "entries"); err != nil {
		return nil, errors.Wrapf(err, "failed to build plan %s", p.Metadata.Name)
	}
	return root, nil
}

type builder struct {
	rt runtime.Runtime
}

func (b *builder) entries(c *collection.Collection, specs []config.EntrySpec, sc *scope, path string) error {
	for i, e := range specs {
		if err := b.entry(c, e, sc, path+"/"+e.Label(i)); err != nil {
			return err
		}
	}
	return nil
}

// entry registers one plan entry with its rollback and completion actions.
// Errors are prefixed with where; errors from inside a group carry their own
// path already.
func (b *builder) entry(c *collection.Collection, e config.EntrySpec, sc *scope, where string) error {
	switch e.Kind {
	case KindTempDir, KindTempFile:
		if err := b.temporary(c, e, sc); err != nil {
			return errors.Wrap(err, where)
		}
	case config.KindGroup:
		group := c.Child(e.Name)
		if err := b.entries(group, e.Entries, newScope(sc), where); err != nil {
			return err
		}
		if err := place(c, e, group); err != nil {
			return errors.Wrap(err, where)
		}
	default:
		s, err := b.step(e, sc)
		if err == nil {
			err = place(c, e, s)
		}
		if err != nil {
			return errors.Wrap(err, where)
		}
	}

	for i, r := range e.Rollback {
		s, err := b.step(r, sc)
		if err == nil {
			err = c.AddRollback(s)
		}
		if err != nil {
			return errors.Wrapf(err, "%s/rollback/%s", where, r.Label(i))
		}
	}
	for i, r := range e.Completion {
		s, err := b.step(r, sc)
		if err == nil {
			err = c.AddCompletion(s)
		}
		if err != nil {
			return errors.Wrapf(err, "%s/completion/%s", where, r.Label(i))
		}
	}
	return nil
}

func (b *builder) temporary(c *collection.Collection, e config.EntrySpec, sc *scope) error {
	if e.Name == "" {
		return errors.Errorf("kind %s needs a name to be referenced by", e.Kind)
	}
	if e.Before != "" || e.After != "" {
		return errors.Errorf("kind %s cannot be positioned", e.Kind)
	}
	if e.Host != "" {
		return errors.Errorf("kind %s does not run on hosts", e.Kind)
	}
	k, err := GetKind(e.Kind)
	if err != nil {
		return err
	}
	args, err := newArgs(k, e.Args, sc, b.rt.WorkDir())
	if err != nil {
		return err
	}

	var h *collection.Handle
	if e.Kind == KindTempDir {
		h, err = c.AllocateTempDir(e.Name)
	} else {
		var ext string
		if ext, err = args.String("ext"); err != nil {
			return err
		}
		h, err = c.AllocateTempFile(e.Name, ext)
	}
	if err != nil {
		return err
	}
	sc.set(e.Name, h)
	return nil
}

// step builds a leaf entry through its registered kind.
func (b *builder) step(e config.EntrySpec, sc *scope) (step.Step, error) {
	k, err := GetKind(e.Kind)
	if err != nil {
		return nil, err
	}
	if e.Host != "" && !k.Host {
		return nil, errors.Errorf("kind %s does not run on hosts", e.Kind)
	}
	args, err := newArgs(k, e.Args, sc, b.rt.WorkDir())
	if err != nil {
		return nil, err
	}
	s, err := k.Build(&Context{Runtime: b.rt, Entry: e, Args: args})
	if err != nil {
		return nil, err
	}
	if e.Description != "" {
		s = describe(s, e.Description)
	}
	return s, nil
}

func place(c *collection.Collection, e config.EntrySpec, s step.Step) error {
	switch {
	case e.Before != "":
		return c.Before(e.Before, e.Name, s)
	case e.After != "":
		return c.After(e.After, e.Name, s)
	default:
		return c.Add(e.Name, s)
	}
}

type described struct {
	step.Step
	description string
}

func (d described) Description() string { return d.description }
func (d described) Unwrap() step.Step   { return d.Step }

// describe replaces the description of s and keeps its rollback and
// completion facets.
func describe(s step.Step, description string) step.Step {
	caps := step.CapabilitiesOf(s)
	var out step.Step = described{Step: s, description: description}
	if caps.Rollback != nil {
		out = step.WithRollback(out, caps.Rollback)
	}
	if caps.Completion != nil {
		out = step.WithCompletion(out, caps.Completion)
	}
	return out
}
