package collection

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/file"
	"github.com/mensylisir/xmbuild/step"
)

// Temporary decorates a step that produces a short-lived filesystem path.
// The producer must report the path as a string in its Result.Data. The
// path is removed as a completion of whichever collection owns the
// Temporary; until a collection adopts it, the global fallback registry
// owns it and removes it at process exit.
type Temporary struct {
	producer step.Step
	path     *Handle

	mu         sync.Mutex
	owner      *Collection
	fallbackID string
}

// Wrap makes producer's output temporary and registers it with the global
// fallback registry.
func Wrap(producer step.Step) *Temporary {
	t := newTemporary(producer)
	t.fallbackID = registerFallback(t)
	return t
}

func newTemporary(producer step.Step) *Temporary {
	return &Temporary{producer: producer, path: newHandle(producer.Description())}
}

// Path is resolved once the producer has run.
func (t *Temporary) Path() *Handle { return t.path }

// Owner returns the collection that adopted the Temporary, or nil while the
// fallback registry owns it.
func (t *Temporary) Owner() *Collection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

func (t *Temporary) Description() string {
	return "temporary: " + t.producer.Description()
}

func (t *Temporary) Execute(log *logrus.Entry) *ending.Result {
	res := t.producer.Execute(log)
	if res.Failed() {
		if res == nil {
			return ending.Failure(ErrNoResult, "")
		}
		return res
	}
	p, ok := res.Data.(string)
	if !ok || p == "" {
		return ending.Failuref("producer %q reported no path", t.producer.Description())
	}
	t.path.resolve(p)
	log.Debugf("Temporary path %s allocated", p)
	return res
}

// Rollback forwards the producer's own rollback, if it has one.
func (t *Temporary) Rollback() step.Step {
	if r, ok := t.producer.(step.Rollbacker); ok {
		return r.Rollback()
	}
	return nil
}

// Completion removes the path, after the producer's own completion when it
// has one.
func (t *Temporary) Completion() step.Step {
	rm := t.removal()
	if c, ok := t.producer.(step.Completer); ok {
		if first := c.Completion(); first != nil {
			rm.first = first
			rm.DescriptionField = first.Description() + ", then remove temporary path"
		}
	}
	return rm
}

func (t *Temporary) removal() *removeTemporary {
	return &removeTemporary{BaseStep: step.NewBaseStep("remove temporary path"), path: t.path}
}

func (t *Temporary) adopt(owner *Collection) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner != nil {
		return errors.Wrapf(ErrAlreadyOwned, "temporary owned by %q", t.owner.Path())
	}
	t.owner = owner
	owner.handles = append(owner.handles, t.path)
	if t.fallbackID != "" {
		deregisterFallback(t.fallbackID)
		t.fallbackID = ""
	}
	return nil
}

// release hands the Temporary back to the fallback registry once owner no
// longer holds it.
func (t *Temporary) release(owner *Collection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner != owner {
		return
	}
	t.owner = nil
	for i, h := range owner.handles {
		if h == t.path {
			owner.handles = append(owner.handles[:i], owner.handles[i+1:]...)
			break
		}
	}
	t.fallbackID = registerFallback(t)
}

type removeTemporary struct {
	step.BaseStep
	path  *Handle
	first step.Step
}

// Execute removes the path. A path that was never allocated, or that has
// already been moved away, is not an error. The path is removed even when
// the producer's completion fails.
func (r *removeTemporary) Execute(log *logrus.Entry) *ending.Result {
	if r.first == nil {
		return r.remove(log)
	}
	first := r.first.Execute(log)
	res := r.remove(log)
	if !first.Failed() {
		return res
	}
	if first == nil {
		first = ending.Failure(ErrNoResult, "")
	}
	if res.Failed() {
		log.Warnf("Failed to remove temporary path: %s", res.Message)
	}
	return first
}

func (r *removeTemporary) remove(log *logrus.Entry) *ending.Result {
	p, err := r.path.Value()
	if errors.Is(err, ErrUnresolved) {
		return ending.Success("nothing allocated", nil)
	}
	if err != nil {
		return ending.Failure(err, "")
	}
	if err := file.Remove(p); err != nil {
		return ending.Failure(err, "")
	}
	log.Debugf("Removed temporary path %s", p)
	return ending.Success("removed "+p, p)
}

// allocate creates a uniquely named directory or file under base.
type allocate struct {
	step.BaseStep
	base string
	dir  bool
	ext  string
}

func (a *allocate) Execute(log *logrus.Entry) *ending.Result {
	if err := os.MkdirAll(a.base, common.FileMode0700); err != nil {
		return ending.Failure(errors.Wrapf(err, "failed to create temp base %s", a.base), "")
	}
	p := filepath.Join(a.base, common.TempPrefix+uuid.NewString()+a.ext)
	if a.dir {
		if err := os.Mkdir(p, common.FileMode0700); err != nil {
			return ending.Failure(errors.Wrapf(err, "failed to create temporary directory %s", p), "")
		}
		return ending.Success("allocated "+p, p)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, common.FileMode0600)
	if err != nil {
		return ending.Failure(errors.Wrapf(err, "failed to create temporary file %s", p), "")
	}
	if err := f.Close(); err != nil {
		return ending.Failure(errors.Wrapf(err, "failed to close temporary file %s", p), "")
	}
	return ending.Success("allocated "+p, p)
}

// AllocateTempDir registers an entry that creates a fresh temporary
// directory and returns a handle to its path. The directory is removed when
// this collection completes. Steps added later can read the handle when
// they execute.
func (c *Collection) AllocateTempDir(name string) (*Handle, error) {
	return c.allocate(name, &allocate{BaseStep: step.NewBaseStep("allocate temporary directory"), base: c.opts.tempBase, dir: true})
}

// AllocateTempFile is AllocateTempDir for an empty file; ext is appended to
// the generated name.
func (c *Collection) AllocateTempFile(name, ext string) (*Handle, error) {
	return c.allocate(name, &allocate{BaseStep: step.NewBaseStep("allocate temporary file"), base: c.opts.tempBase, ext: ext})
}

func (c *Collection) allocate(name string, a *allocate) (*Handle, error) {
	t := newTemporary(a)
	if name != "" {
		t.path.name = name
	}
	if err := c.Add(name, t); err != nil {
		return nil, err
	}
	return t.path, nil
}
