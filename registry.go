// File: lixenwraith/layerconf/registry.go
package layerconf

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Module describes one configuration-owning unit.
type Module struct {
	// Key identifies the module, names its files and scopes its env variables
	Key string
	// Schema validates and normalizes the merged tree
	Schema Schema
	// Target optionally references the owning component, for diagnostics only
	Target any
}

// Registry holds the module descriptors known to the engine.
// It is written during bootstrap and read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		logger:  loggerOrDiscard(logger),
	}
}

// Register adds a module. The first registration of a key wins; later ones
// are logged and rejected with ErrDuplicateKey.
func (r *Registry) Register(m Module) error {
	if m.Key == "" {
		return errors.New("module key cannot be empty")
	}
	if m.Schema == nil {
		return fmt.Errorf("module %q has no schema", m.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.modules[m.Key]; exists {
		r.logger.Warn("ignoring duplicate configuration module",
			"key", m.Key,
			"registered", fmt.Sprintf("%T", existing.Target),
			"duplicate", fmt.Sprintf("%T", m.Target))
		return fmt.Errorf("%w: %s", ErrDuplicateKey, m.Key)
	}

	r.modules[m.Key] = m
	r.order = append(r.order, m.Key)
	return nil
}

// Lookup returns the module registered under key.
func (r *Registry) Lookup(key string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[key]
	return m, ok
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Keys returns registered keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Modules returns registered modules in registration order.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Module, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.modules[key])
	}
	return out
}
