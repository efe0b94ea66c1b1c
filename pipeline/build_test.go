package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/runtime"
)

func noDial(cfg connector.Config) (connector.Connection, error) {
	return nil, os.ErrPermission
}

func loadPlan(t *testing.T, path string) (*config.Plan, runtime.Runtime) {
	t.Helper()
	p, err := config.NewLoader(path).Load()
	require.NoError(t, err)
	rt, err := runtime.FromPlan(p, noDial)
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return p, rt
}

func TestBuildReleasePlan(t *testing.T) {
	for _, name := range []string{"release.yaml", "release.toml"} {
		t.Run(name, func(t *testing.T) {
			p, rt := loadPlan(t, filepath.Join("..", "config", "testdata", name))
			c, err := Build(p, rt, collection.WithLogger(logger.Discard()))
			require.NoError(t, err)

			assert.Equal(t, "release", c.Name())
			assert.Equal(t, []string{"scratch", "stage", "manifest", "package", "banner", "publish"}, c.Names())

			var out bytes.Buffer
			require.NoError(t, c.Describe(&out))
			text := out.String()
			assert.Contains(t, text, "create directory ${scratch}/stage")
			assert.Contains(t, text, "completion: run script on localhost: echo packaged")
			assert.Contains(t, text, "upload "+filepath.Join(p.Spec.Settings.WorkDir, "dist/release.tar.gz")+" to 10.0.0.5:/opt/releases/release.tar.gz")
		})
	}
}

const sitePlan = `apiVersion: xmbuild.io/v1alpha1
kind: Plan
metadata:
  name: site
spec:
  settings:
    workDir: work
    tempBase: tmp
  entries:
    - name: scratch
      kind: tempdir
    - name: pages
      kind: mkdir
      args:
        path: {ref: scratch, join: site}
    - name: index
      kind: template
      description: render the index page
      args:
        path: {ref: scratch, join: site/index.html}
        template: "<h1>{{ .title }}</h1>"
        data:
          title: hello
    - name: package
      entries:
        - name: tar
          kind: tar
          args:
            src: {ref: scratch, join: site}
            dst: dist/site.tar.gz
      completion:
        - kind: log
          args:
            message: packaged
    - name: check
      kind: exec
      args:
        command: test
        args: ["-f", "dist/site.tar.gz"]
`

func writeSitePlan(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "work"), 0o755))
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sitePlan+extra), 0o644))
	return dir
}

func TestRunLocalPlan(t *testing.T) {
	dir := writeSitePlan(t, "")
	p, rt := loadPlan(t, filepath.Join(dir, "plan.yaml"))
	c, err := Build(p, rt, collection.WithLogger(logger.Discard()))
	require.NoError(t, err)

	agg := c.Run()
	require.True(t, agg.Result.Succeeded(), agg.Result.String())
	assert.FileExists(t, filepath.Join(dir, "work", "dist", "site.tar.gz"))

	r, ok := agg.Lookup("package/tar")
	require.True(t, ok)
	assert.True(t, r.Succeeded())

	leftovers, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary directory is removed once the run completes")
}

func TestRunLocalPlanUnwindsOnFailure(t *testing.T) {
	dir := writeSitePlan(t, `    - name: fail
      kind: shell
      args:
        script: exit 3
`)
	p, rt := loadPlan(t, filepath.Join(dir, "plan.yaml"))
	c, err := Build(p, rt, collection.WithLogger(logger.Discard()))
	require.NoError(t, err)

	agg := c.Run()
	require.True(t, agg.Result.Failed())
	assert.Contains(t, agg.Result.String(), "exited with code 3")
	assert.NoFileExists(t, filepath.Join(dir, "work", "dist", "site.tar.gz"))

	leftovers, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDescriptionOverrideKeepsRollback(t *testing.T) {
	dir := writeSitePlan(t, "")
	p, rt := loadPlan(t, filepath.Join(dir, "plan.yaml"))
	c, err := Build(p, rt)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, c.Describe(&out))
	assert.Contains(t, out.String(), "index: render the index page")
	assert.Contains(t, out.String(), "rollback: restore file written by: render template into ${scratch}/site/index.html")
}

func TestBuildErrors(t *testing.T) {
	tmp := config.EntrySpec{Name: "scratch", Kind: KindTempDir}
	tests := []struct {
		name    string
		entries []config.EntrySpec
		want    string
	}{
		{
			name:    "unknown kind",
			entries: []config.EntrySpec{{Name: "a", Kind: "helm"}},
			want:    "not found in registry",
		},
		{
			name:    "unnamed tempdir",
			entries: []config.EntrySpec{{Kind: KindTempDir}},
			want:    "needs a name",
		},
		{
			name:    "positioned tempfile",
			entries: []config.EntrySpec{tmp, {Name: "f", Kind: KindTempFile, After: "scratch"}},
			want:    "cannot be positioned",
		},
		{
			name:    "local kind on a host",
			entries: []config.EntrySpec{{Name: "a", Kind: "mkdir", Host: "node1", Args: map[string]any{"path": "x"}}},
			want:    "does not run on hosts",
		},
		{
			name: "group as rollback",
			entries: []config.EntrySpec{{
				Name: "a", Kind: "remove", Args: map[string]any{"path": "x"},
				Rollback: []config.EntrySpec{{Kind: config.KindGroup}},
			}},
			want: "entries/a/rollback/#1: kind group cannot be used as a rollback or completion action",
		},
		{
			name: "reference to a later temporary",
			entries: []config.EntrySpec{
				{Name: "a", Kind: "mkdir", Args: map[string]any{"path": map[string]any{"ref": "scratch"}}},
				tmp,
			},
			want: "not an earlier tempdir or tempfile entry",
		},
		{
			name:    "template with two sources",
			entries: []config.EntrySpec{{Name: "a", Kind: "template", Args: map[string]any{"path": "x", "template": "t", "file": "f"}}},
			want:    "exactly one of template and file",
		},
		{
			name:    "upload without host",
			entries: []config.EntrySpec{{Name: "a", Kind: "upload", Args: map[string]any{"src": "x", "dst": "/y"}}},
			want:    "upload needs a host",
		},
		{
			name:    "missing argument in group",
			entries: []config.EntrySpec{{Name: "g", Kind: config.KindGroup, Entries: []config.EntrySpec{{Kind: "mkdir"}}}},
			want:    `entries/g/#1: missing required argument "path"`,
		},
		{
			name:    "unknown position target",
			entries: []config.EntrySpec{{Name: "a", Kind: "remove", Before: "b", Args: map[string]any{"path": "x"}}},
			want:    "entries/a",
		},
	}

	rt, err := runtime.NewRuntime(runtime.Config{ObjectName: "t", Dialer: noDial,
		Hosts: []config.HostSpec{{Name: "node1", Address: "10.0.0.1"}}})
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &config.Plan{Metadata: config.MetadataSpec{Name: "t"}, Spec: config.PlanSpec{Entries: tt.entries}}
			_, err := Build(p, rt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
