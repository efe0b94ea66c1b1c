package pipeline

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// DefaultRegistry holds the registered step kinds.
	DefaultRegistry = make(map[string]Kind)
	registryMutex   = &sync.RWMutex{}
)

// Register adds a step kind to the DefaultRegistry.
// It returns an error if a kind with the same name is already registered.
func Register(k Kind) error {
	if k.Name == "" || k.Build == nil {
		return errors.New("step kind needs a name and a factory")
	}
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := DefaultRegistry[k.Name]; exists {
		return errors.Errorf("step kind '%s' already registered", k.Name)
	}
	DefaultRegistry[k.Name] = k
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(k Kind) {
	if err := Register(k); err != nil {
		panic(err)
	}
}

// GetKind retrieves a registered step kind.
func GetKind(name string) (Kind, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	k, exists := DefaultRegistry[name]
	if !exists {
		return Kind{}, errors.Errorf("step kind '%s' not found in registry", name)
	}
	return k, nil
}

// GetRegisteredKinds returns every registered kind sorted by name.
func GetRegisteredKinds() []Kind {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	kinds := make([]Kind, 0, len(DefaultRegistry))
	for _, k := range DefaultRegistry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Name < kinds[j].Name })
	return kinds
}
