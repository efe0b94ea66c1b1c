package collection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/step"
)

func exists(t *testing.T, p string) bool {
	t.Helper()
	_, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestAllocateTempDirLifecycle(t *testing.T) {
	base := t.TempDir()
	c := New("build", quiet(), WithTempBase(base))
	work, err := c.AllocateTempDir("work")
	require.NoError(t, err)

	_, err = work.Value()
	require.ErrorIs(t, err, ErrUnresolved, "nothing exists before the run")

	var seen string
	require.NoError(t, c.AddFunc("use", "write into work dir", func(*logrus.Entry) error {
		p, err := work.Join("out.txt").Value()
		if err != nil {
			return err
		}
		seen = p
		return os.WriteFile(p, []byte("data"), 0644)
	}))

	agg := c.Run()
	require.True(t, agg.Succeeded())
	require.NotEmpty(t, seen)
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(seen)), common.TempPrefix))
	assert.Equal(t, base, filepath.Dir(filepath.Dir(seen)))
	assert.False(t, exists(t, filepath.Dir(seen)), "temporary dir removed after completion")
}

func TestAllocateTempDirRemovedOnFailure(t *testing.T) {
	tr := &trace{}
	c := New("build", quiet(), WithTempBase(t.TempDir()))
	work, err := c.AllocateTempDir("work")
	require.NoError(t, err)
	var dir string
	require.NoError(t, c.AddFunc("", "remember", func(*logrus.Entry) error {
		dir, err = work.Value()
		return err
	}))
	require.NoError(t, c.Add("fail", tr.fail("fail")))

	agg := c.Run()
	require.True(t, agg.Failed())
	require.NotEmpty(t, dir)
	assert.False(t, exists(t, dir))
}

func TestAllocateTempFile(t *testing.T) {
	c := New("build", quiet(), WithTempBase(t.TempDir()))
	h, err := c.AllocateTempFile("manifest", ".json")
	require.NoError(t, err)
	var p string
	require.NoError(t, c.AddFunc("", "stat", func(*logrus.Entry) error {
		p, err = h.Value()
		if err != nil {
			return err
		}
		_, err = os.Stat(p)
		return err
	}))
	require.True(t, c.Run().Succeeded())
	assert.True(t, strings.HasSuffix(p, ".json"))
	assert.False(t, exists(t, p))
}

func TestHandleReResolvedOnRerun(t *testing.T) {
	c := New("build", quiet(), WithTempBase(t.TempDir()))
	work, err := c.AllocateTempDir("work")
	require.NoError(t, err)
	var seen []string
	require.NoError(t, c.AddFunc("", "record", func(*logrus.Entry) error {
		p, err := work.Value()
		seen = append(seen, p)
		return err
	}))

	require.True(t, c.Run().Succeeded())
	require.True(t, c.Run().Succeeded())
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
}

func TestMovedTemporaryCleanupIsNoop(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "kept")
	c := New("build", quiet(), WithTempBase(filepath.Join(dir, "tmp")))
	work, err := c.AllocateTempDir("work")
	require.NoError(t, err)
	require.NoError(t, c.AddFunc("persist", "move out", func(*logrus.Entry) error {
		p, err := work.Value()
		if err != nil {
			return err
		}
		return os.Rename(p, dest)
	}))

	agg := c.Run()
	require.True(t, agg.Succeeded())
	assert.False(t, agg.HasDiagnostics())
	assert.True(t, exists(t, dest))
}

// producer creates a directory and reports it, like a user-defined
// resource-producing step.
func producer(dir string) step.Step {
	return step.FuncResult("make scratch", func(*logrus.Entry) *ending.Result {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ending.Failure(err, "")
		}
		return ending.Success("", dir)
	})
}

func TestWrapAdoptedByCollection(t *testing.T) {
	defer Shutdown()
	dir := filepath.Join(t.TempDir(), "scratch")
	before := pendingFallback()

	tmp := Wrap(producer(dir))
	assert.Equal(t, before+1, pendingFallback())

	c := New("build", quiet())
	require.NoError(t, c.Add("scratch", tmp))
	assert.Equal(t, before, pendingFallback(), "ownership moved to the collection")
	assert.Same(t, c, tmp.Owner())

	other := New("other", quiet())
	err := other.Add("scratch", tmp)
	assert.True(t, errors.Is(err, ErrAlreadyOwned))

	require.True(t, c.Run().Succeeded())
	assert.False(t, exists(t, dir))
}

func TestWrapRequiresPath(t *testing.T) {
	defer Shutdown()
	c := New("build", quiet())
	require.NoError(t, c.Add("bad", Wrap(step.Noop("no path"))))
	agg := c.Run()
	require.True(t, agg.Failed())
	assert.Contains(t, agg.Message, "reported no path")
}

func TestWrapPropagatesProducerFailure(t *testing.T) {
	defer Shutdown()
	tr := &trace{}
	tmp := Wrap(tr.fail("produce"))
	c := New("build", quiet())
	require.NoError(t, c.Add("tmp", tmp))
	agg := c.Run()
	assert.Equal(t, "produce broke", agg.Message)
	assert.False(t, tmp.Path().Resolved())
}

func TestDecoratedWrapAdoptedByCollection(t *testing.T) {
	defer Shutdown()
	tr := &trace{}
	dir := filepath.Join(t.TempDir(), "scratch")
	before := pendingFallback()

	tmp := Wrap(producer(dir))
	c := New("build", quiet())
	require.NoError(t, c.Add("scratch", step.WithRollback(tmp, tr.ok("undo scratch"))))
	assert.Same(t, c, tmp.Owner())
	assert.Equal(t, before, pendingFallback())

	require.True(t, c.Run().Succeeded())
	assert.False(t, exists(t, dir))
	assert.Empty(t, tr.list())
}

func TestWrapKeepsProducerFacets(t *testing.T) {
	defer Shutdown()
	tr := &trace{}
	dir := filepath.Join(t.TempDir(), "scratch")
	p := step.WithCompletion(step.WithRollback(producer(dir), tr.ok("undo producer")), tr.ok("finish producer"))

	c := New("build", quiet())
	require.NoError(t, c.Add("scratch", Wrap(p)))
	require.NoError(t, c.Add("boom", tr.fail("boom")))

	agg := c.Run()
	require.True(t, agg.Failed())
	assert.Equal(t, []string{"boom", "undo producer", "finish producer"}, tr.list())
	assert.False(t, exists(t, dir))
	assert.False(t, agg.HasDiagnostics())
}

func TestRemoveHandsTemporaryBackToFallback(t *testing.T) {
	defer Shutdown()
	before := pendingFallback()
	tmp := Wrap(producer(filepath.Join(t.TempDir(), "scratch")))

	c := New("build", quiet())
	require.NoError(t, c.Add("scratch", tmp))
	require.NoError(t, c.Remove("scratch"))
	assert.Nil(t, tmp.Owner())
	assert.Equal(t, before+1, pendingFallback())

	other := New("other", quiet())
	require.NoError(t, other.Add("scratch", tmp))
	assert.Same(t, other, tmp.Owner())
	assert.Equal(t, before, pendingFallback())
}

func TestAddAllFailureHandsTemporariesBack(t *testing.T) {
	defer Shutdown()
	before := pendingFallback()
	tmp := Wrap(producer(filepath.Join(t.TempDir(), "scratch")))

	c := New("build", quiet())
	err := c.AddAll("group", tmp, nil)
	assert.True(t, errors.Is(err, ErrNilStep))
	assert.Nil(t, tmp.Owner())
	assert.Equal(t, before+1, pendingFallback())
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Add("scratch", tmp))
	assert.Same(t, c, tmp.Owner())
}
