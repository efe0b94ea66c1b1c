package collection

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/step"
)

func TestNestedSuccessHandsActionsToParent(t *testing.T) {
	tr := &trace{}
	child := New("child", quiet())
	require.NoError(t, child.Add("c1", tr.ok("c1")))
	require.NoError(t, child.AddRollback(tr.ok("undo c1")))
	require.NoError(t, child.AddCompletion(tr.ok("finish c1")))
	require.NoError(t, child.Add("c2", tr.ok("c2")))
	require.NoError(t, child.AddRollback(tr.ok("undo c2")))

	parent := New("parent", quiet())
	require.NoError(t, parent.Add("p1", tr.ok("p1")))
	require.NoError(t, parent.AddRollback(tr.ok("undo p1")))
	require.NoError(t, parent.AddCompletion(tr.ok("finish p1")))
	require.NoError(t, parent.Add("child", child))
	require.NoError(t, parent.AddRollback(tr.ok("undo child")))
	require.NoError(t, parent.Add("p2", tr.fail("p2")))

	agg := parent.Run()
	require.True(t, agg.Failed())
	assert.Equal(t, []string{
		"p1", "c1", "c2", "p2",
		"undo child", "undo c2", "undo c1", "undo p1",
		"finish p1", "finish c1",
	}, tr.list())
	assert.Equal(t, PhaseFinished, child.Phase())
}

func TestNestedSuccessDefersCompletionsToParent(t *testing.T) {
	tr := &trace{}
	child := New("child", quiet())
	require.NoError(t, child.Add("c1", tr.ok("c1")))
	require.NoError(t, child.AddCompletion(tr.ok("finish c1")))

	parent := New("parent", quiet())
	require.NoError(t, parent.Add("child", child))
	require.NoError(t, parent.Add("p2", tr.ok("p2")))

	agg := parent.Run()
	require.True(t, agg.Succeeded())
	assert.Equal(t, []string{"c1", "p2", "finish c1"}, tr.list())
}

func TestNestedFailureUnwindsLocally(t *testing.T) {
	tr := &trace{}
	child := New("child", quiet())
	require.NoError(t, child.Add("c1", tr.ok("c1")))
	require.NoError(t, child.AddRollback(tr.ok("undo c1")))
	require.NoError(t, child.AddCompletion(tr.ok("finish c1")))
	require.NoError(t, child.Add("c2", tr.fail("c2")))

	parent := New("parent", quiet())
	require.NoError(t, parent.Add("p1", tr.ok("p1")))
	require.NoError(t, parent.AddRollback(tr.ok("undo p1")))
	require.NoError(t, parent.Add("child", child))
	require.NoError(t, parent.AddRollback(tr.ok("undo child")))
	require.NoError(t, parent.Add("p3", tr.ok("p3")))

	agg := parent.Run()
	require.True(t, agg.Failed())
	assert.Equal(t, "child", agg.FailedEntry)
	assert.Equal(t, "c2 broke", agg.Message)
	assert.Equal(t, []string{
		"p1", "c1", "c2",
		"undo c1", "finish c1",
		"undo p1",
	}, tr.list())
}

func TestNestedResultsLookup(t *testing.T) {
	tr := &trace{}
	inner := New("inner", quiet())
	require.NoError(t, inner.Add("leaf", tr.ok("leaf")))
	middle := New("middle", quiet())
	require.NoError(t, middle.Add("inner", inner))
	outer := New("outer", quiet())
	require.NoError(t, outer.Add("middle", middle))

	agg := outer.Run()
	require.True(t, agg.Succeeded())
	r, ok := agg.Lookup("middle/inner/leaf")
	require.True(t, ok)
	assert.Equal(t, "leaf", r.Data)
	assert.Equal(t, "outer/middle/inner", inner.Path())
}

func TestNestedDiagnosticLabelsIncludePath(t *testing.T) {
	tr := &trace{}
	child := New("child", quiet())
	require.NoError(t, child.Add("c1", tr.ok("c1")))
	require.NoError(t, child.AddRollback(tr.fail("undo c1")))

	parent := New("parent", quiet())
	require.NoError(t, parent.Add("child", child))
	require.NoError(t, parent.Add("p2", tr.fail("p2")))

	agg := parent.Run()
	require.Len(t, agg.Diagnostics, 1)
	assert.Equal(t, "child/c1", agg.Diagnostics[0].Entry)
}

func TestDecoratedNestedCollectionStaysNested(t *testing.T) {
	tr := &trace{}
	child := New("child", quiet())
	require.NoError(t, child.Add("a", tr.ok("a")))
	require.NoError(t, child.AddRollback(tr.ok("undo a")))
	require.NoError(t, child.AddCompletion(tr.ok("complete a")))

	parent := New("parent", quiet())
	require.NoError(t, parent.Add("child", step.WithRollback(child, tr.ok("undo child"))))
	require.NoError(t, parent.Add("boom", tr.fail("boom")))
	assert.Equal(t, "parent/child", child.Path())

	agg := parent.Run()
	require.True(t, agg.Failed())
	assert.Equal(t, []string{"a", "boom", "undo child", "undo a", "complete a"}, tr.list())

	err := New("other", quiet()).Add("child", child)
	assert.True(t, errors.Is(err, ErrAlreadyOwned))

	require.NoError(t, parent.Remove("child"))
	assert.Equal(t, "child", child.Path())
}
