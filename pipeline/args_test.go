package pipeline

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/step"
)

var testKind = Kind{
	Name: "test",
	Parameters: []ParameterDefinition{
		{Name: "path", Type: ParamTypePath, Required: true},
		{Name: "text", Type: ParamTypeString},
		{Name: "list", Type: ParamTypeList},
		{Name: "env", Type: ParamTypeMap},
		{Name: "data", Type: ParamTypeMap},
		{Name: "mode", Type: ParamTypeString},
		{Name: "flag", Type: ParamTypeBoolean},
		{Name: "timeout", Type: ParamTypeString, DefaultValue: "2s"},
	},
}

func TestArgsRejectUnknownAndMissing(t *testing.T) {
	_, err := newArgs(testKind, map[string]any{"path": "a", "colour": "red"}, newScope(nil), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown argument "colour"`)

	_, err = newArgs(testKind, map[string]any{"text": "a"}, newScope(nil), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required argument "path"`)
}

func TestArgsAccessors(t *testing.T) {
	a, err := newArgs(testKind, map[string]any{
		"path": "out/file.txt",
		"text": 42,
		"list": []any{"-v", 3},
		"env":  map[string]any{"B": "2", "A": 1},
		"mode": "0640",
		"flag": true,
	}, newScope(nil), "/work")
	require.NoError(t, err)

	p, err := a.Path("path")
	require.NoError(t, err)
	assert.Equal(t, step.Literal("/work/out/file.txt"), p)

	s, err := a.String("text")
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	list, err := step.Resolve(mustList(t, a, "list")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"-v", "3"}, list)

	env, err := a.Env("env")
	require.NoError(t, err)
	assert.Equal(t, []string{"A=1", "B=2"}, env)

	mode, err := a.Mode("mode")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), mode)

	flag, err := a.Bool("flag")
	require.NoError(t, err)
	assert.True(t, flag)

	d, err := a.Duration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d, "default value applies")

	missing, err := a.Value("data")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func mustList(t *testing.T, a *Args, name string) []step.Value {
	t.Helper()
	l, err := a.List(name)
	require.NoError(t, err)
	return l
}

func TestArgsTypeErrors(t *testing.T) {
	a, err := newArgs(testKind, map[string]any{
		"path": []any{"x"},
		"list": "not-a-list",
		"env":  "not-a-map",
		"mode": "rwx",
		"flag": "yes",
	}, newScope(nil), "")
	require.NoError(t, err)

	_, err = a.Path("path")
	assert.Error(t, err)
	_, err = a.List("list")
	assert.Error(t, err)
	_, err = a.Env("env")
	assert.Error(t, err)
	_, err = a.Mode("mode")
	assert.Error(t, err)
	_, err = a.Bool("flag")
	assert.Error(t, err)
}

func TestArgsReferences(t *testing.T) {
	c := collection.New("refs")
	h, err := c.AllocateTempDir("scratch")
	require.NoError(t, err)
	parent := newScope(nil)
	parent.set("scratch", h)
	sc := newScope(parent)

	a, err := newArgs(testKind, map[string]any{
		"path": map[string]any{"ref": "scratch", "join": "stage"},
		"data": map[string]any{"dir": map[string]any{"ref": "scratch"}, "n": 1},
	}, sc, "/work")
	require.NoError(t, err)

	p, err := a.Path("path")
	require.NoError(t, err)
	assert.Equal(t, "${scratch}/stage", step.Describe(p), "references are not resolved against the work directory")

	data, err := a.Data("data")
	require.NoError(t, err)
	assert.Same(t, h, data["dir"])
	assert.Equal(t, 1, data["n"])

	for name, ref := range map[string]map[string]any{
		"unknown target": {"ref": "nope"},
		"extra key":      {"ref": "scratch", "into": "x"},
		"empty ref":      {"ref": ""},
		"join not text":  {"ref": "scratch", "join": 3},
	} {
		t.Run(name, func(t *testing.T) {
			a, err := newArgs(testKind, map[string]any{"path": ref}, sc, "")
			require.NoError(t, err)
			_, err = a.Path("path")
			assert.Error(t, err)
		})
	}
}
