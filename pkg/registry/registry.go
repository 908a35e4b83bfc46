// Package registry keeps the set of bank adapters available to the
// aggregation router, keyed by provider code. Adding a provider means
// implementing provider.BankAdapter and registering it here; nothing else
// in the engine changes.
package registry

import (
	"sync"

	"github.com/mosaiq/bankfeed/pkg/provider"
)

// Meta describes a registered provider for catalog endpoints.
type Meta struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	Enabled     bool     `json:"enabled"`
	Sandbox     bool     `json:"sandbox"`
}

type entry struct {
	adapter provider.BankAdapter
	meta    Meta
}

// Registry is a thread-safe adapter registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces the adapter for a provider code.
func (r *Registry) Register(adapter provider.BankAdapter, meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta.Code = adapter.Name()
	r.entries[adapter.Name()] = entry{adapter: adapter, meta: meta}
}

// Get returns the adapter for a provider code.
func (r *Registry) Get(code string) (provider.BankAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[code]
	if !ok {
		return nil, false
	}
	return e.adapter, true
}

// IsRegistered checks whether a provider code has an adapter.
func (r *Registry) IsRegistered(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[code]
	return ok
}

// ResolvePrefix returns the provider code whose adapter issued the given
// external id, matching on the adapter's id prefix.
func (r *Registry) ResolvePrefix(externalID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for code, e := range r.entries {
		p := e.adapter.IDPrefix()
		if p != "" && len(externalID) >= len(p) && externalID[:len(p)] == p {
			return code, true
		}
	}
	return "", false
}

// List returns metadata for every registered provider.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	metas := make([]Meta, 0, len(r.entries))
	for _, e := range r.entries {
		metas = append(metas, e.meta)
	}
	return metas
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
