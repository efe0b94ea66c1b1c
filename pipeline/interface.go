package pipeline

import (
	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/runner"
	"github.com/mensylisir/xmbuild/runtime"
	"github.com/mensylisir/xmbuild/step"
)

// ParameterType defines the type of a parameter.
type ParameterType string

const (
	ParamTypeString  ParameterType = "string"
	ParamTypeInteger ParameterType = "integer"
	ParamTypeBoolean ParameterType = "boolean"
	ParamTypeMap     ParameterType = "map"
	ParamTypeList    ParameterType = "list"

	// ParamTypePath is a string or a {ref, join} reference. Relative local
	// paths are resolved against the work directory.
	ParamTypePath ParameterType = "path"
)

// ParameterDefinition describes an argument accepted by a step kind.
type ParameterDefinition struct {
	Name         string        `json:"name" yaml:"name"`
	Type         ParameterType `json:"type" yaml:"type"`
	Description  string        `json:"description" yaml:"description"`
	Required     bool          `json:"required" yaml:"required"`
	DefaultValue interface{}   `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// StepFactory builds the step for one plan entry.
type StepFactory func(ctx *Context) (step.Step, error)

// Kind is a step kind that plan entries can name.
type Kind struct {
	Name        string
	Description string
	Parameters  []ParameterDefinition

	// Host is true when the kind may target a remote host.
	Host  bool
	Build StepFactory
}

// Context is what a StepFactory builds from.
type Context struct {
	Runtime runtime.Runtime
	Entry   config.EntrySpec
	Args    *Args
}

// Runner returns the runner for the entry's host, or the local runner.
func (c *Context) Runner() (runner.Runner, error) {
	if c.Entry.Host == "" {
		return c.Runtime.LocalRunner(), nil
	}
	return c.Runtime.HostRunner(c.Entry.Host)
}
