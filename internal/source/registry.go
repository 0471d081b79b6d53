package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/timmy/contentsync/internal/domain"
)

// Registry maps source types to adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.SourceType]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.SourceType]Adapter)}
}

// Register stores adapter under its source type. A later registration for the
// same type replaces the earlier one.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.SourceType()] = adapter
}

// Get returns the adapter registered for sourceType.
func (r *Registry) Get(sourceType domain.SourceType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterNotFound, sourceType)
	}
	return adapter, nil
}

// List returns all registered source types, sorted.
func (r *Registry) List() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.SourceType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
