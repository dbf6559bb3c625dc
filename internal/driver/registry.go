// Package driver holds the built-in control policies and the registry that
// maps their names to constructors.
package driver

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/OCAP2/racesim/pkg/core"
)

// ErrUnknown is returned by New for a name nobody registered.
var ErrUnknown = errors.New("unknown driver")

// Factory builds a fresh driver. Drivers keep per-car state, so every car
// needs its own instance.
type Factory func() core.Driver

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func init() {
	Register("Tutorial4", func() core.Driver { return &Tutorial4{} })
	Register("Gruppe12", func() core.Driver { return Gruppe12{} })
	Register("Reverse", func() core.Driver { return Reverse{} })
}

// Register adds a named factory, replacing any earlier one of the same name.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// New builds the driver registered under name.
func New(name string) (core.Driver, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return f(), nil
}

// NewAll builds one driver per name, in order.
func NewAll(names []string) ([]core.Driver, error) {
	out := make([]core.Driver, 0, len(names))
	for _, n := range names {
		d, err := New(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Names lists the registered drivers, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
