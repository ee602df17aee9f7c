package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/david0154/David-BCI/internal/ports"
)

// Factory builds a stage instance from its configured parameters.
type Factory func(params map[string]float64) (ports.Stage, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a stage constructible by name from configuration. Built-ins
// register in init; algorithm libraries register theirs the same way.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

// Build constructs one named stage.
func Build(name string, params map[string]float64) (ports.Stage, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown stage %q (registered: %v)", name, Names())
	}
	return f(params)
}

// Names lists the registered stage names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
