package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/step"
	"github.com/mensylisir/xmbuild/util"
)

const (
	refKey  = "ref"
	joinKey = "join"
)

// scope maps tempdir and tempfile entry names to their handles. Groups open
// a child scope so that they can see what enclosing collections allocated.
type scope struct {
	parent  *scope
	handles map[string]*collection.Handle
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, handles: make(map[string]*collection.Handle)}
}

func (s *scope) set(name string, h *collection.Handle) { s.handles[name] = h }

func (s *scope) lookup(name string) (*collection.Handle, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if h, ok := sc.handles[name]; ok {
			return h, true
		}
	}
	return nil, false
}

// Args are the arguments of one entry, checked against its kind's parameters.
type Args struct {
	values  map[string]any
	params  map[string]ParameterDefinition
	scope   *scope
	workDir string
}

func newArgs(k Kind, values map[string]any, sc *scope, workDir string) (*Args, error) {
	a := &Args{
		values:  values,
		params:  make(map[string]ParameterDefinition, len(k.Parameters)),
		scope:   sc,
		workDir: workDir,
	}
	for _, p := range k.Parameters {
		a.params[p.Name] = p
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := a.params[name]; !ok {
			return nil, errors.Errorf("unknown argument %q for kind %s", name, k.Name)
		}
	}
	for _, p := range k.Parameters {
		if _, ok := values[p.Name]; p.Required && !ok {
			return nil, errors.Errorf("missing required argument %q for kind %s", p.Name, k.Name)
		}
	}
	return a, nil
}

// Has reports whether the argument was given.
func (a *Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a *Args) raw(name string) (any, bool) {
	if v, ok := a.values[name]; ok {
		return v, true
	}
	if p, ok := a.params[name]; ok && p.DefaultValue != nil {
		return p.DefaultValue, true
	}
	return nil, false
}

// String returns a plain scalar argument as a string, or "" when absent.
func (a *Args) String(name string) (string, error) {
	v, ok := a.raw(name)
	if !ok {
		return "", nil
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(x), nil
	default:
		return "", errors.Errorf("argument %s: want a string, got %T", name, v)
	}
}

// Value returns a string or reference argument as a step.Value, or nil when
// absent.
func (a *Args) Value(name string) (step.Value, error) {
	v, ok := a.raw(name)
	if !ok {
		return nil, nil
	}
	return a.toValue(name, v, false)
}

// Path is Value with relative local paths resolved against the work
// directory.
func (a *Args) Path(name string) (step.Value, error) {
	v, ok := a.raw(name)
	if !ok {
		return nil, nil
	}
	return a.toValue(name, v, true)
}

// List returns a list argument whose elements are strings or references.
func (a *Args) List(name string) ([]step.Value, error) {
	v, ok := a.raw(name)
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("argument %s: want a list, got %T", name, v)
	}
	out := make([]step.Value, 0, len(items))
	for i, item := range items {
		val, err := a.toValue(fmt.Sprintf("%s[%d]", name, i), item, false)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

// Env returns a map argument as KEY=VALUE pairs sorted by key.
func (a *Args) Env(name string) ([]string, error) {
	m, err := a.mapArg(name)
	if err != nil || m == nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := m[k].(type) {
		case string, int, int64, float64, bool:
			env = append(env, fmt.Sprintf("%s=%v", k, v))
		default:
			return nil, errors.Errorf("argument %s.%s: want a scalar, got %T", name, k, v)
		}
	}
	return env, nil
}

// Data returns a map argument as template data. Reference values become
// step.Values that the template step reads when it renders.
func (a *Args) Data(name string) (util.Data, error) {
	m, err := a.mapArg(name)
	if err != nil || m == nil {
		return nil, err
	}
	data := make(util.Data, len(m))
	for k, v := range m {
		if ref, ok := v.(map[string]any); ok && isRef(ref) {
			val, err := a.ref(name+"."+k, ref)
			if err != nil {
				return nil, err
			}
			data[k] = val
			continue
		}
		data[k] = v
	}
	return data, nil
}

// Mode returns a file mode argument. Strings are read as octal, numbers are
// taken as is.
func (a *Args) Mode(name string) (fs.FileMode, error) {
	v, ok := a.raw(name)
	if !ok {
		return 0, nil
	}
	switch x := v.(type) {
	case string:
		m, err := strconv.ParseUint(x, 8, 32)
		if err != nil {
			return 0, errors.Errorf("argument %s: invalid octal mode %q", name, x)
		}
		return fs.FileMode(m), nil
	case int:
		return fs.FileMode(x), nil
	case int64:
		return fs.FileMode(x), nil
	case uint64:
		return fs.FileMode(x), nil
	default:
		return 0, errors.Errorf("argument %s: want a mode, got %T", name, v)
	}
}

// Bool returns a boolean argument, false when absent.
func (a *Args) Bool(name string) (bool, error) {
	v, ok := a.raw(name)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("argument %s: want a boolean, got %T", name, v)
	}
	return b, nil
}

// Duration returns a Go duration argument, 0 when absent.
func (a *Args) Duration(name string) (time.Duration, error) {
	s, err := a.String(name)
	if err != nil || s == "" {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "argument %s", name)
	}
	return d, nil
}

func (a *Args) mapArg(name string) (map[string]any, error) {
	v, ok := a.raw(name)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Errorf("argument %s: want a map, got %T", name, v)
	}
	return m, nil
}

func (a *Args) toValue(name string, v any, local bool) (step.Value, error) {
	switch x := v.(type) {
	case string:
		if local && x != "" && !filepath.IsAbs(x) && a.workDir != "" {
			x = filepath.Join(a.workDir, x)
		}
		return step.Literal(x), nil
	case int, int64, uint64, float64, bool:
		return step.Literal(fmt.Sprint(x)), nil
	case map[string]any:
		return a.ref(name, x)
	default:
		return nil, errors.Errorf("argument %s: want a string or a {ref, join} map, got %T", name, v)
	}
}

func isRef(m map[string]any) bool {
	_, ok := m[refKey]
	return ok
}

func (a *Args) ref(name string, m map[string]any) (step.Value, error) {
	for k := range m {
		if k != refKey && k != joinKey {
			return nil, errors.Errorf("argument %s: unexpected key %q in reference", name, k)
		}
	}
	target, ok := m[refKey].(string)
	if !ok || target == "" {
		return nil, errors.Errorf("argument %s: reference needs a %q string", name, refKey)
	}
	h, ok := a.scope.lookup(target)
	if !ok {
		return nil, errors.Errorf("argument %s: %q is not an earlier tempdir or tempfile entry", name, target)
	}
	join, ok := m[joinKey]
	if !ok {
		return h, nil
	}
	sub, ok := join.(string)
	if !ok {
		return nil, errors.Errorf("argument %s: %q must be a string", name, joinKey)
	}
	return h.Join(sub), nil
}
