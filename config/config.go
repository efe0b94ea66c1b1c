package config

import (
	"strconv"
	"time"
)

const (
	APIVersion = "xmbuild.io/v1alpha1"
	PlanKind   = "Plan"
)

// Plan is the top-level build plan file.
type Plan struct {
	APIVersion string       `yaml:"apiVersion" toml:"apiVersion"`
	Kind       string       `yaml:"kind" toml:"kind"`
	Metadata   MetadataSpec `yaml:"metadata" toml:"metadata"`
	Spec       PlanSpec     `yaml:"spec" toml:"spec"`

	// Dir is the directory the plan was loaded from. Relative paths in
	// settings are resolved against it.
	Dir string `yaml:"-" toml:"-"`
}

// MetadataSpec names the plan. The name becomes the root collection name.
type MetadataSpec struct {
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description,omitempty" toml:"description,omitempty"`
}

// PlanSpec holds the settings, the hosts and the ordered entries of a plan.
type PlanSpec struct {
	Settings Settings    `yaml:"settings" toml:"settings"`
	Hosts    []HostSpec  `yaml:"hosts,omitempty" toml:"hosts,omitempty"`
	Entries  []EntrySpec `yaml:"entries" toml:"entries"`
}

// Settings are the run-wide knobs that CLI flags may override.
type Settings struct {
	WorkDir     string  `yaml:"workDir,omitempty" toml:"workDir,omitempty"`
	TempBase    string  `yaml:"tempBase,omitempty" toml:"tempBase,omitempty"`
	MetricsFile string  `yaml:"metricsFile,omitempty" toml:"metricsFile,omitempty"`
	Log         LogSpec `yaml:"log,omitempty" toml:"log,omitempty"`
}

// LogSpec configures the global logger. An empty Dir logs to the console.
type LogSpec struct {
	Level   string `yaml:"level,omitempty" toml:"level,omitempty"`
	Dir     string `yaml:"dir,omitempty" toml:"dir,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty" toml:"verbose,omitempty"`
}

// HostSpec defines the configuration for a single remote host.
type HostSpec struct {
	Name           string `yaml:"name" toml:"name"`
	Address        string `yaml:"address" toml:"address"`
	Port           int    `yaml:"port,omitempty" toml:"port,omitempty"` // Default to 22 if not specified by user
	User           string `yaml:"user,omitempty" toml:"user,omitempty"`
	Password       string `yaml:"password,omitempty" toml:"password,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty" toml:"privateKeyPath,omitempty"`
	AgentSocket    string `yaml:"agentSocket,omitempty" toml:"agentSocket,omitempty"`
	Timeout        string `yaml:"timeout,omitempty" toml:"timeout,omitempty"` // Go duration, e.g. "30s"
}

// TimeoutDuration parses Timeout. Validate has already rejected bad values.
func (h HostSpec) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(h.Timeout)
	return d
}

// EntrySpec is one entry of a collection. Kind selects the step; Args are
// its kind-specific arguments. A string argument may instead be a reference
// {ref: <entry>, join: <sub path>} to the path produced by an earlier
// tempdir or tempfile entry.
type EntrySpec struct {
	Name        string         `yaml:"name,omitempty" toml:"name,omitempty"`
	Kind        string         `yaml:"kind,omitempty" toml:"kind,omitempty"`
	Description string         `yaml:"description,omitempty" toml:"description,omitempty"`
	Host        string         `yaml:"host,omitempty" toml:"host,omitempty"`
	Args        map[string]any `yaml:"args,omitempty" toml:"args,omitempty"`
	Before      string         `yaml:"before,omitempty" toml:"before,omitempty"`
	After       string         `yaml:"after,omitempty" toml:"after,omitempty"`
	Rollback    []EntrySpec    `yaml:"rollback,omitempty" toml:"rollback,omitempty"`
	Completion  []EntrySpec    `yaml:"completion,omitempty" toml:"completion,omitempty"`
	Entries     []EntrySpec    `yaml:"entries,omitempty" toml:"entries,omitempty"` // kind group
}

// Label names the entry in error messages.
func (e EntrySpec) Label(pos int) string {
	if e.Name != "" {
		return e.Name
	}
	return "#" + strconv.Itoa(pos+1)
}
