package collection

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/step"
)

const fallbackName = "fallback"

// fallbackMu guards creation, registration, deregistration and shutdown of
// the process-wide fallback registry.
var (
	fallbackMu sync.Mutex
	fallback   *fallbackRegistry
)

// fallbackRegistry owns temporaries that no user collection has adopted.
// Each one is held by a no-op entry whose completion removes the path, so a
// failing cleanup never prevents the others.
type fallbackRegistry struct {
	coll    *Collection
	signals chan os.Signal
	stop    chan struct{}
	once    sync.Once
	result  *ending.Aggregate
}

func newFallbackRegistry() *fallbackRegistry {
	r := &fallbackRegistry{
		coll:    New(fallbackName),
		signals: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
	}
	signal.Notify(r.signals, os.Interrupt, syscall.SIGTERM)
	go r.watch()
	return r
}

// watch runs the registry when the process is asked to terminate, then
// re-raises the signal.
func (r *fallbackRegistry) watch() {
	select {
	case sig := <-r.signals:
		fallbackMu.Lock()
		if fallback == r {
			fallback = nil
		}
		r.run()
		fallbackMu.Unlock()
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(sig)
		}
	case <-r.stop:
	}
}

// run executes the registry exactly once. Callers hold fallbackMu.
func (r *fallbackRegistry) run() *ending.Aggregate {
	r.once.Do(func() {
		signal.Stop(r.signals)
		close(r.stop)
		if r.coll.Len() > 0 {
			logger.Log.ForCollection(fallbackName).Infof("Cleaning up %d unowned temporary resources", r.coll.Len())
		}
		r.result = r.coll.Run()
	})
	return r.result
}

func registerFallback(t *Temporary) string {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	if fallback == nil {
		fallback = newFallbackRegistry()
	}
	id := uuid.NewString()
	// Neither call can fail: the id is fresh and the entry was just added.
	_ = fallback.coll.Add(id, step.Noop("hold "+t.Description()))
	_ = fallback.coll.AddCompletion(t.removal())
	return id
}

func deregisterFallback(id string) {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	if fallback != nil {
		_ = fallback.coll.Remove(id)
	}
}

// Shutdown runs the fallback registry, removing every temporary resource
// that was never adopted by a collection, and discards it. It returns nil
// when there was nothing registered. Hosts should defer it in main; it is
// also triggered by SIGINT and SIGTERM.
func Shutdown() *ending.Aggregate {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	r := fallback
	if r == nil {
		return nil
	}
	fallback = nil
	return r.run()
}

// pendingFallback reports how many temporaries the registry holds.
func pendingFallback() int {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	if fallback == nil {
		return 0
	}
	return fallback.coll.Len()
}
