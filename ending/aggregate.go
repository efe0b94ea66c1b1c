package ending

import (
	"sort"
	"strings"
)

// PathSeparator joins nested entry names in Aggregate.Lookup paths.
const PathSeparator = "/"

// Phase names used in diagnostics.
const (
	PhaseRollback   = "rollback"
	PhaseCompletion = "completion"
)

// Diagnostic records a failed rollback or completion action. It never
// changes the primary result of a run.
type Diagnostic struct {
	Phase  string
	Entry  string
	Result *Result
}

// Aggregate is the outcome of running a collection.
type Aggregate struct {
	// Result is the first failing entry's result, or the last entry's result
	// when nothing failed.
	*Result
	// FailedEntry labels the entry that failed, empty on success.
	FailedEntry string
	Diagnostics []Diagnostic

	results map[string]*Result
	nested  map[string]*Aggregate
}

// NewAggregate creates an empty, successful Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Result:  Success("", nil),
		results: make(map[string]*Result),
		nested:  make(map[string]*Aggregate),
	}
}

// Record stores the result of a named entry.
func (a *Aggregate) Record(name string, r *Result) {
	if name == "" {
		return
	}
	a.results[name] = r
}

// RecordNested stores the aggregate of a named nested collection.
func (a *Aggregate) RecordNested(name string, child *Aggregate) {
	if name == "" || child == nil {
		return
	}
	a.nested[name] = child
}

// Diagnose appends a rollback or completion failure.
func (a *Aggregate) Diagnose(phase, entry string, r *Result) {
	a.Diagnostics = append(a.Diagnostics, Diagnostic{Phase: phase, Entry: entry, Result: r})
}

// Get returns the result recorded for a name in this collection.
func (a *Aggregate) Get(name string) (*Result, bool) {
	r, ok := a.results[name]
	return r, ok
}

// Nested returns the aggregate of a named nested collection entry.
func (a *Aggregate) Nested(name string) (*Aggregate, bool) {
	n, ok := a.nested[name]
	return n, ok
}

// Lookup resolves "outer/inner" paths through nested aggregates.
func (a *Aggregate) Lookup(path string) (*Result, bool) {
	parts := strings.Split(path, PathSeparator)
	cur := a
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur.nested[p]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur.Get(parts[len(parts)-1])
}

// Names returns the names of all recorded results, sorted.
func (a *Aggregate) Names() []string {
	names := make([]string, 0, len(a.results))
	for n := range a.results {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasDiagnostics reports whether any rollback or completion failed.
func (a *Aggregate) HasDiagnostics() bool {
	return len(a.Diagnostics) > 0
}
