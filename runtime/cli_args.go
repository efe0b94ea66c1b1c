package runtime

import (
	"github.com/mensylisir/xmbuild/config"
)

// CliArgs holds command-line flags that override plan settings.
// Empty values leave the plan untouched.
type CliArgs struct {
	LogLevel    string
	LogDir      string
	Verbose     bool
	MetricsFile string
	TempBase    string
	WorkDir     string
}

// NewCliArgs creates a new instance of CliArgs with default values.
func NewCliArgs() *CliArgs {
	return &CliArgs{}
}

// Apply writes the set flags into s.
func (a *CliArgs) Apply(s *config.Settings) {
	if a.LogLevel != "" {
		s.Log.Level = a.LogLevel
	}
	if a.LogDir != "" {
		s.Log.Dir = a.LogDir
	}
	if a.Verbose {
		s.Log.Verbose = true
	}
	if a.MetricsFile != "" {
		s.MetricsFile = a.MetricsFile
	}
	if a.TempBase != "" {
		s.TempBase = a.TempBase
	}
	if a.WorkDir != "" {
		s.WorkDir = a.WorkDir
	}
}
