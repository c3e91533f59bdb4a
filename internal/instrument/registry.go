package instrument

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Instrument)
)

// Register associates an instrument name with its constructor. Shipped
// instruments register from init; external packages may add their own
// before configuration is loaded.
func Register(name string, build func() Instrument) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("instrument %q registered twice", name))
	}
	registry[name] = build
}

// New builds the named instrument.
func New(name string) (Instrument, error) {
	registryMu.RLock()
	build, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown instrument %q (known: %v)", name, Names())
	}
	return build(), nil
}

// Names lists the registered instrument names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
