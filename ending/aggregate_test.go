package ending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateLookup(t *testing.T) {
	inner := NewAggregate()
	inner.Record("compile", Success("compiled", 3))

	outer := NewAggregate()
	outer.Record("prepare", Success("prepared", nil))
	outer.Record("build", Success("", nil))
	outer.RecordNested("build", inner)

	r, ok := outer.Lookup("prepare")
	require.True(t, ok)
	assert.Equal(t, "prepared", r.Message)

	r, ok = outer.Lookup("build/compile")
	require.True(t, ok)
	assert.Equal(t, 3, r.Data)

	_, ok = outer.Lookup("build/missing")
	assert.False(t, ok)
	_, ok = outer.Lookup("nope/compile")
	assert.False(t, ok)
}

func TestAggregateIgnoresUnnamed(t *testing.T) {
	a := NewAggregate()
	a.Record("", Success("x", nil))
	a.RecordNested("", NewAggregate())
	assert.Empty(t, a.Names())
	assert.True(t, a.Succeeded())
}

func TestAggregateDiagnostics(t *testing.T) {
	a := NewAggregate()
	assert.False(t, a.HasDiagnostics())
	a.Diagnose(PhaseRollback, "mkdir", Failuref("rmdir failed"))
	a.Diagnose(PhaseCompletion, "tmp", Failuref("rm failed"))
	require.Len(t, a.Diagnostics, 2)
	assert.Equal(t, PhaseRollback, a.Diagnostics[0].Phase)
	assert.Equal(t, "tmp", a.Diagnostics[1].Entry)
	assert.True(t, a.Succeeded(), "diagnostics never change the primary result")
}

func TestAggregateNames(t *testing.T) {
	a := NewAggregate()
	a.Record("b", Success("", nil))
	a.Record("a", Success("", nil))
	assert.Equal(t, []string{"a", "b"}, a.Names())
}
