package collection

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderHappyPath(t *testing.T) {
	tr := &trace{}
	c, err := NewBuilder("release", quiet()).
		Add("a", tr.ok("a")).
		Rollback(tr.ok("undo a")).
		Completion(tr.ok("finish a")).
		AddAll("group", tr.ok("g1"), tr.ok("g2")).
		Nested("nested", func(b *Builder) {
			b.Add("n1", tr.ok("n1")).Completion(tr.ok("finish n1"))
		}).
		Add("c", tr.ok("c")).
		Before("c", "b", tr.ok("b")).
		After("c", "d", tr.ok("d")).
		AddFunc("e", "callable", func(*logrus.Entry) error {
			tr.add("e")
			return nil
		}).
		Build()
	require.NoError(t, err)

	agg := c.Run()
	require.True(t, agg.Succeeded())
	assert.Equal(t, []string{"a", "g1", "g2", "n1", "b", "c", "d", "e", "finish a", "finish n1"}, tr.list())
	_, ok := agg.Lookup("nested/n1")
	assert.True(t, ok)
}

func TestBuilderKeepsFirstError(t *testing.T) {
	tr := &trace{}
	b := NewBuilder("release", quiet()).
		Rollback(tr.ok("orphan")).
		Add("a", tr.ok("a")).
		Add("a", tr.ok("dup"))

	require.Error(t, b.Err())
	assert.True(t, errors.Is(b.Err(), ErrNoEntry))

	c, err := b.Build()
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrNoEntry))
}

func TestBuilderNestedError(t *testing.T) {
	tr := &trace{}
	_, err := NewBuilder("release", quiet()).
		Nested("inner", func(b *Builder) {
			b.Before("missing", "x", tr.ok("x"))
		}).
		Build()
	assert.True(t, errors.Is(err, ErrUnknownName))
}

func TestBuilderAllocate(t *testing.T) {
	b := NewBuilder("release", quiet(), WithTempBase(t.TempDir()))
	work := b.AllocateTempDir("work")
	dup := b.AllocateTempFile("work", ".txt")
	require.NotNil(t, work)
	require.NotNil(t, dup, "a handle is returned even after an error")
	_, err := b.Build()
	assert.True(t, errors.Is(err, ErrDuplicateName))

	_, err = dup.Value()
	assert.ErrorIs(t, err, ErrUnresolved)
}
