package step

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
)

// Value is a string whose content may only be known at execution time.
// Steps read their Value arguments inside Execute, never at construction.
type Value interface {
	Value() (string, error)
}

// Literal is a Value known up front.
type Literal string

func (l Literal) Value() (string, error) {
	return string(l), nil
}

func (l Literal) String() string { return string(l) }

// Join derives a Value that appends path elements to base when read.
func Join(base Value, elem ...string) Value {
	return joined{base: base, elem: elem}
}

type joined struct {
	base Value
	elem []string
}

func (j joined) Value() (string, error) {
	v, err := j.base.Value()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{v}, j.elem...)...), nil
}

func (j joined) String() string {
	return filepath.Join(append([]string{Describe(j.base)}, j.elem...)...)
}

// Describe renders v for descriptions and logs without reading it.
func Describe(v Value) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case fmt.Stringer:
		return t.String()
	default:
		return "<lazy>"
	}
}

// Resolve reads all values, stopping at the first error.
func Resolve(values ...Value) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			return nil, errors.Errorf("value %d is nil", i)
		}
		s, err := v.Value()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
