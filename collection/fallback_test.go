package collection

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmbuild/logger"
)

func TestShutdownRemovesUnownedTemporaries(t *testing.T) {
	Shutdown()
	dir := filepath.Join(t.TempDir(), "orphan")
	tmp := Wrap(producer(dir))
	require.Equal(t, 1, pendingFallback())

	res := tmp.Execute(logger.Discard())
	require.True(t, res.Succeeded())
	assert.True(t, exists(t, dir))

	agg := Shutdown()
	require.NotNil(t, agg)
	assert.True(t, agg.Succeeded())
	assert.False(t, exists(t, dir))
	assert.Zero(t, pendingFallback(), "registry discarded after running")
	assert.Nil(t, Shutdown(), "second shutdown has nothing to do")
}

func TestShutdownSkipsNeverExecutedTemporaries(t *testing.T) {
	Shutdown()
	Wrap(producer(filepath.Join(t.TempDir(), "never")))
	agg := Shutdown()
	require.NotNil(t, agg)
	assert.True(t, agg.Succeeded())
	assert.False(t, agg.HasDiagnostics())
}

func TestRegistryRecreatedAfterShutdown(t *testing.T) {
	Shutdown()
	Wrap(producer(filepath.Join(t.TempDir(), "a")))
	require.NotNil(t, Shutdown())

	dir := filepath.Join(t.TempDir(), "b")
	tmp := Wrap(producer(dir))
	assert.Equal(t, 1, pendingFallback())
	require.True(t, tmp.Execute(logger.Discard()).Succeeded())
	require.NotNil(t, Shutdown())
	assert.False(t, exists(t, dir))
}

func TestConcurrentRegistrationAndShutdown(t *testing.T) {
	Shutdown()
	base := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tmp := Wrap(producer(filepath.Join(base, "dir", string(rune('a'+i)))))
			if i%2 == 0 {
				c := New("c", quiet())
				_ = c.Add("t", tmp)
			}
			if i%5 == 0 {
				Shutdown()
			}
		}(i)
	}
	wg.Wait()
	Shutdown()
	assert.Zero(t, pendingFallback())
}
