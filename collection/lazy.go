package collection

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/step"
)

// ErrUnresolved is returned when a handle is read before the entry that
// produces its value has executed.
var ErrUnresolved = errors.New("value not resolved yet")

// Handle is a placeholder for a value produced during execution, such as
// the path of a temporary directory. It is handed out at registration time
// and resolved when the producing entry runs; steps that read it must do so
// inside Execute.
type Handle struct {
	mu       sync.RWMutex
	name     string
	value    string
	resolved bool
}

func newHandle(name string) *Handle {
	return &Handle{name: name}
}

// Name is the label of the producing entry.
func (h *Handle) Name() string { return h.name }

// String names the handle without reading it.
func (h *Handle) String() string { return "${" + h.name + "}" }

// Value implements step.Value.
func (h *Handle) Value() (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.resolved {
		return "", errors.Wrapf(ErrUnresolved, "handle %q", h.name)
	}
	return h.value, nil
}

// Resolved reports whether the producing entry has run in the current run.
func (h *Handle) Resolved() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.resolved
}

// Join derives a value below the handle's path, read lazily.
func (h *Handle) Join(elem ...string) step.Value {
	return step.Join(h, elem...)
}

func (h *Handle) resolve(v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value, h.resolved = v, true
}

func (h *Handle) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value, h.resolved = "", false
}
