package channels

import (
	"fmt"
	"sync"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// Registry holds the registered channel adapters keyed by channel type.
// Capability declarations are validated at registration time.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.ChannelType]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.ChannelType]Adapter)}
}

// Register adds an adapter. It fails on duplicate channel types or invalid
// capability declarations.
func (r *Registry) Register(adapter Adapter) error {
	if err := adapter.Capabilities().Validate(); err != nil {
		return fmt.Errorf("adapter %s: invalid capabilities: %w", adapter.Type(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	channelType := adapter.Type()
	if _, exists := r.adapters[channelType]; exists {
		return fmt.Errorf("adapter for channel %s already registered", channelType)
	}
	r.adapters[channelType] = adapter
	return nil
}

// Get returns the adapter for a channel type.
func (r *Registry) Get(channelType models.ChannelType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[channelType]
	if !ok {
		return nil, fmt.Errorf("no adapter for channel %s", channelType)
	}
	return adapter, nil
}

// Types returns the registered channel types.
func (r *Registry) Types() []models.ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ChannelType, 0, len(r.adapters))
	for channelType := range r.adapters {
		types = append(types, channelType)
	}
	return types
}
