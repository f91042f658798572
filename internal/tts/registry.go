package tts

import (
	"errors"
	"sync"
)

// Registry maps provider ids to live providers. It is safe for concurrent use.
//
// Registering an id that is already present replaces the previous binding in
// place (hot-swap); the id keeps its original position in List. Callers that
// need strict uniqueness check Get before registering.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register binds p under p.ID() and returns the provider it replaced, if any.
func (r *Registry) Register(p Provider) (Provider, error) {
	if p == nil {
		return nil, errors.New("register: nil provider")
	}
	id := p.ID()
	if id == "" {
		return nil, errors.New("register: provider id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, exists := r.providers[id]
	if !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = p
	return prev, nil
}

// Get returns the provider bound to id. A missing id is not an error.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// List returns a snapshot of the registered ids in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Snapshot returns the registered providers in registration order.
func (r *Registry) Snapshot() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
