package provider

import (
	"fmt"
	"sync"
)

// Registry holds configured gateways keyed by provider name.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register adds a gateway under its own name. Registering the same name
// twice is an error.
func (r *Registry) Register(gw Gateway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := gw.Name()
	if _, exists := r.gateways[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.gateways[name] = gw
	return nil
}

// Get returns the gateway for a provider name.
func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return gw, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
