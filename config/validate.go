package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/ip"
)

// Validate checks the structure of a plan. Kind-specific arguments are
// checked when the plan is built into a collection.
func Validate(p *Plan) error {
	if p.APIVersion != APIVersion {
		return errors.Errorf("unsupported apiVersion %q, want %q", p.APIVersion, APIVersion)
	}
	if p.Kind != PlanKind {
		return errors.Errorf("kind must be %q, got %q", PlanKind, p.Kind)
	}
	if p.Metadata.Name == "" {
		return errors.New("metadata.name is required")
	}
	if strings.Contains(p.Metadata.Name, "/") {
		return errors.Errorf("metadata.name %q must not contain '/'", p.Metadata.Name)
	}
	if _, err := logrus.ParseLevel(p.Spec.Settings.Log.Level); err != nil {
		return errors.Wrap(err, "settings.log.level")
	}

	hosts := make(map[string]struct{}, len(p.Spec.Hosts))
	for i, h := range p.Spec.Hosts {
		if h.Name == "" {
			return errors.Errorf("hosts[%d]: name is required", i)
		}
		if _, dup := hosts[h.Name]; dup {
			return errors.Errorf("hosts[%d]: duplicate host name %q", i, h.Name)
		}
		hosts[h.Name] = struct{}{}
		if h.Address == "" {
			return errors.Errorf("host %q: address is required", h.Name)
		}
		if err := ip.ValidateAddress(h.Address); err != nil {
			return errors.Wrapf(err, "host %q", h.Name)
		}
		if h.Timeout != "" {
			if _, err := time.ParseDuration(h.Timeout); err != nil {
				return errors.Wrapf(err, "host %q: invalid timeout", h.Name)
			}
		}
	}

	if len(p.Spec.Entries) == 0 {
		return errors.New("spec.entries must not be empty")
	}
	return validateEntries("entries", p.Spec.Entries, hosts, true)
}

func validateEntries(path string, entries []EntrySpec, hosts map[string]struct{}, named bool) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		where := path + "/" + e.Label(i)
		if e.Name != "" {
			if !named {
				return errors.Errorf("%s: rollback and completion actions cannot be named", where)
			}
			if strings.Contains(e.Name, "/") {
				return errors.Errorf("%s: name must not contain '/'", where)
			}
			if _, dup := seen[e.Name]; dup {
				return errors.Errorf("%s: duplicate entry name", where)
			}
		}
		if e.Kind == "" {
			return errors.Errorf("%s: kind is required", where)
		}
		if e.Host != "" {
			if _, ok := hosts[e.Host]; !ok {
				return errors.Errorf("%s: unknown host %q", where, e.Host)
			}
		}
		if e.Before != "" && e.After != "" {
			return errors.Errorf("%s: before and after are mutually exclusive", where)
		}
		if !named && (e.Before != "" || e.After != "") {
			return errors.Errorf("%s: rollback and completion actions cannot be positioned", where)
		}
		for _, target := range []string{e.Before, e.After} {
			if target == "" {
				continue
			}
			if _, ok := seen[target]; !ok {
				return errors.Errorf("%s: positioning target %q must be declared earlier", where, target)
			}
		}
		if e.Kind == KindGroup {
			if len(e.Entries) == 0 {
				return errors.Errorf("%s: group has no entries", where)
			}
			if err := validateEntries(where, e.Entries, hosts, true); err != nil {
				return err
			}
		} else if len(e.Entries) > 0 {
			return errors.Errorf("%s: only kind %q may have entries", where, KindGroup)
		}
		if err := validateEntries(where+"/rollback", e.Rollback, hosts, false); err != nil {
			return err
		}
		if err := validateEntries(where+"/completion", e.Completion, hosts, false); err != nil {
			return err
		}
		if e.Name != "" {
			seen[e.Name] = struct{}{}
		}
	}
	return nil
}
