package collection

import (
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/step"
)

// Builder assembles a Collection fluently. The first registration error is
// kept and every later call becomes a no-op.
//
//	c, err := collection.NewBuilder("release").
//		Add("stage", fsops.Mkdir(dir)).
//		Rollback(fsops.Remove(dir)).
//		AddAll("package", tarStep, uploadStep).
//		Build()
type Builder struct {
	c   *Collection
	err error
}

// NewBuilder starts a new collection.
func NewBuilder(name string, opts ...Option) *Builder {
	return &Builder{c: New(name, opts...)}
}

func (b *Builder) do(fn func() error) *Builder {
	if b.err == nil {
		b.err = fn()
	}
	return b
}

func (b *Builder) Add(name string, s step.Step) *Builder {
	return b.do(func() error { return b.c.Add(name, s) })
}

func (b *Builder) AddFunc(name, description string, fn func(log *logrus.Entry) error) *Builder {
	return b.do(func() error { return b.c.AddFunc(name, description, fn) })
}

func (b *Builder) AddAll(name string, steps ...step.Step) *Builder {
	return b.do(func() error { return b.c.AddAll(name, steps...) })
}

// Nested builds a child collection with fn and adds it as one entry.
func (b *Builder) Nested(name string, fn func(child *Builder)) *Builder {
	return b.do(func() error {
		child := &Builder{c: b.c.Child(name)}
		fn(child)
		if child.err != nil {
			return child.err
		}
		return b.c.Add(name, child.c)
	})
}

func (b *Builder) Before(target, name string, s step.Step) *Builder {
	return b.do(func() error { return b.c.Before(target, name, s) })
}

func (b *Builder) After(target, name string, s step.Step) *Builder {
	return b.do(func() error { return b.c.After(target, name, s) })
}

// Rollback attaches to the most recently added entry.
func (b *Builder) Rollback(s step.Step) *Builder {
	return b.do(func() error { return b.c.AddRollback(s) })
}

// Completion attaches to the most recently added entry.
func (b *Builder) Completion(s step.Step) *Builder {
	return b.do(func() error { return b.c.AddCompletion(s) })
}

// AllocateTempDir registers a temporary directory entry. After an error the
// returned handle never resolves; Build reports the error.
func (b *Builder) AllocateTempDir(name string) *Handle {
	return b.allocate(name, func() (*Handle, error) { return b.c.AllocateTempDir(name) })
}

// AllocateTempFile registers a temporary file entry.
func (b *Builder) AllocateTempFile(name, ext string) *Handle {
	return b.allocate(name, func() (*Handle, error) { return b.c.AllocateTempFile(name, ext) })
}

func (b *Builder) allocate(name string, fn func() (*Handle, error)) *Handle {
	if b.err != nil {
		return newHandle(name)
	}
	h, err := fn()
	if err != nil {
		b.err = err
		return newHandle(name)
	}
	return h
}

// Err returns the first registration error so far.
func (b *Builder) Err() error { return b.err }

// Build returns the collection, or the first registration error.
func (b *Builder) Build() (*Collection, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.c, nil
}
