/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package feature

import (
	"fmt"
	"sync"
)

// Registry holds the set of stream features a server advertises.
//
// Registration is expected to happen at startup, before any connection
// is accepted. Read access is safe for any number of concurrent
// connections sharing the registry.
type Registry struct {
	mu       sync.RWMutex
	features []Feature
}

// NewRegistry returns an empty feature registry instance.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a new feature to the registry.
// An error is returned if a feature with the same name was previously registered.
func (r *Registry) Register(f Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rf := range r.features {
		if rf.Name() == f.Name() {
			return fmt.Errorf("feature: already registered: %s", f.Name())
		}
	}
	r.features = append(r.features, f)
	return nil
}

// Unregister removes a feature from the registry.
// Unregistering a non previously registered feature is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rf := range r.features {
		if rf.Name() == name {
			r.features = append(r.features[:i], r.features[i+1:]...)
			return
		}
	}
}

// Enumerate returns all registered features in registration order.
// Order is observable on the wire so it must be deterministic.
func (r *Registry) Enumerate() []Feature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]Feature, len(r.features))
	copy(ret, r.features)
	return ret
}

// Count returns the number of registered features.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.features)
}
