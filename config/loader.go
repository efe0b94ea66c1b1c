package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a Plan from a file. The format is
// chosen by extension: .yaml and .yml for YAML, .toml for TOML.
type Loader struct {
	filePath string
}

// NewLoader creates a new plan loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the plan file, applies defaults and validates the result.
func (l *Loader) Load() (*Plan, error) {
	if l.filePath == "" {
		return nil, errors.New("plan file path is empty")
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan file '%s'", l.filePath)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.Errorf("plan file '%s' is empty", l.filePath)
	}

	plan, err := Parse(content, Format(l.filePath))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse plan file '%s'", l.filePath)
	}

	abs, err := filepath.Abs(l.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve plan file '%s'", l.filePath)
	}
	plan.Dir = filepath.Dir(abs)

	SetDefaults(plan)
	if err := Validate(plan); err != nil {
		return nil, errors.Wrapf(err, "invalid plan '%s'", l.filePath)
	}
	return plan, nil
}

// Format returns "yaml", "toml" or "" for an unsupported extension.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// Parse decodes a plan without defaults or validation.
func Parse(content []byte, format string) (*Plan, error) {
	var plan Plan
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&plan); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal plan YAML")
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&plan); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal plan TOML")
		}
	default:
		return nil, errors.Errorf("unsupported plan format %q, use .yaml, .yml or .toml", format)
	}
	return &plan, nil
}
