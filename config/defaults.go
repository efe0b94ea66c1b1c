package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/util"
)

// Define default constants
const (
	DefaultLogLevel    = "info"
	DefaultHostTimeout = "30s"
	KindGroup          = "group"
)

// DefaultTempBase is where temporary paths are allocated unless a plan or
// flag says otherwise.
func DefaultTempBase() string {
	return filepath.Join(xdg.CacheHome, common.AppName, "tmp")
}

// SetDefaults fills in everything a plan may leave out. Relative workDir and
// tempBase are resolved against the plan directory.
func SetDefaults(p *Plan) {
	if p.APIVersion == "" {
		p.APIVersion = APIVersion
	}
	if p.Kind == "" {
		p.Kind = PlanKind
	}

	s := &p.Spec.Settings
	s.WorkDir = resolve(p.Dir, util.FirstNonEmpty(s.WorkDir, "."))
	if s.TempBase == "" {
		s.TempBase = DefaultTempBase()
	} else {
		s.TempBase = resolve(p.Dir, s.TempBase)
	}
	if s.MetricsFile != "" {
		s.MetricsFile = resolve(p.Dir, s.MetricsFile)
	}
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}

	for i := range p.Spec.Hosts {
		h := &p.Spec.Hosts[i]
		if h.Port == 0 {
			h.Port = common.DefaultSSHPort
		}
		if h.User == "" {
			h.User = util.GetenvOrDefault("USER", "root")
		}
		if h.Timeout == "" {
			h.Timeout = DefaultHostTimeout
		}
		if h.PrivateKeyPath != "" {
			h.PrivateKeyPath = resolve(p.Dir, h.PrivateKeyPath)
		}
	}
	setEntryDefaults(p.Spec.Entries)
}

func setEntryDefaults(entries []EntrySpec) {
	for i := range entries {
		e := &entries[i]
		if e.Kind == "" && len(e.Entries) > 0 {
			e.Kind = KindGroup
		}
		setEntryDefaults(e.Rollback)
		setEntryDefaults(e.Completion)
		setEntryDefaults(e.Entries)
	}
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
