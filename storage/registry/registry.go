package registry

import (
	"fmt"
	"sort"
	"sync"

	"truape.co/arcmint/storage"
)

// Settings carries backend-specific configuration, usually the contents of a
// [storage.settings.<name>] table in the run configuration.
type Settings map[string]string

// Backend is a build-time plugin that can open a storage.Uploader.
//
// Backends register themselves in init():
//
//	registry.MustRegister(registry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string

	// Offline reports whether the backend works without network access.
	// Dry runs only accept offline backends.
	Offline bool

	// Open constructs the uploader from settings.
	Open func(s Settings) (storage.Uploader, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// Lookup returns the named backend.
func Lookup(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// List returns all registered backends, sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns registered backend names, sorted.
func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend.
func Open(name string, s Settings) (storage.Uploader, error) {
	b, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("registry: unknown backend %q (registered: %v)", name, Names())
	}
	u, err := b.Open(s)
	if err != nil {
		return nil, fmt.Errorf("registry: open %q: %w", name, err)
	}
	return u, nil
}
