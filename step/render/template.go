package render

import (
	"io/fs"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/step"
	"github.com/mensylisir/xmbuild/step/fsops"
	"github.com/mensylisir/xmbuild/util"
)

// TemplateStep renders a text/template into a file. It undoes itself the
// same way fsops.WriteFileStep does.
type TemplateStep struct {
	*fsops.WriteFileStep
}

// Template renders tmpl with data and writes the result to path. Values in
// data that implement step.Value are read when the step executes.
func Template(path step.Value, tmpl string, data util.Data, mode fs.FileMode) *TemplateStep {
	w := fsops.WriteFile(path, rendered{tmpl: tmpl, data: data}, mode)
	w.DescriptionField = "render template into " + step.Describe(path)
	return &TemplateStep{WriteFileStep: w}
}

// TemplateFile is Template with the template read from tmplPath.
func TemplateFile(path, tmplPath step.Value, data util.Data, mode fs.FileMode) *TemplateStep {
	w := fsops.WriteFile(path, renderedFile{path: tmplPath, data: data}, mode)
	w.DescriptionField = "render " + step.Describe(tmplPath) + " into " + step.Describe(path)
	return &TemplateStep{WriteFileStep: w}
}

type rendered struct {
	tmpl string
	data util.Data
}

func (r rendered) Value() (string, error) {
	data, err := resolveData(r.data)
	if err != nil {
		return "", err
	}
	return util.RenderString(r.tmpl, data)
}

type renderedFile struct {
	path step.Value
	data util.Data
}

func (r renderedFile) Value() (string, error) {
	path, err := r.path.Value()
	if err != nil {
		return "", err
	}
	data, err := resolveData(r.data)
	if err != nil {
		return "", err
	}
	return util.RenderFile(path, data)
}

func resolveData(in util.Data) (util.Data, error) {
	out := make(util.Data, len(in))
	for k, v := range in {
		lazy, ok := v.(step.Value)
		if !ok {
			out[k] = v
			continue
		}
		s, err := lazy.Value()
		if err != nil {
			return nil, errors.Wrapf(err, "template variable %s", k)
		}
		out[k] = s
	}
	return out, nil
}

var _ step.Rollbacker = (*TemplateStep)(nil)
