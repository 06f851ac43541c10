package providers

import (
	"sync"
)

// Registry manages all configured chat and image providers
type Registry struct {
	chat   map[string]ChatProvider
	images map[string]ImageProvider
	mu     sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		chat:   make(map[string]ChatProvider),
		images: make(map[string]ImageProvider),
	}
}

// RegisterChat adds a chat provider to the registry
func (r *Registry) RegisterChat(id string, provider ChatProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[id] = provider
}

// RegisterImage adds an image provider to the registry
func (r *Registry) RegisterImage(id string, provider ImageProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[id] = provider
}

// Chat retrieves a chat provider by ID, or nil
func (r *Registry) Chat(id string) ChatProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chat[id]
}

// Image retrieves an image provider by ID, or nil
func (r *Registry) Image(id string) ImageProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.images[id]
}

// ChatProviders returns a copy of all registered chat providers
func (r *Registry) ChatProviders() map[string]ChatProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make(map[string]ChatProvider, len(r.chat))
	for k, v := range r.chat {
		providers[k] = v
	}
	return providers
}

// List returns all registered chat provider IDs
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.chat))
	for id := range r.chat {
		ids = append(ids, id)
	}
	return ids
}
