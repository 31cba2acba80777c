// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"fmt"
	"sync"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// Registry is the ownership table of media sinks. A sink belongs to at most
// one controller, and at most one engine generation is bound to it at a time.
type Registry struct {
	mu     sync.Mutex
	owners map[string]*binding
}

type binding struct {
	owner      string
	generation uint64
	attached   bool
}

// NewRegistry returns an empty ownership table.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]*binding)}
}

// Claim records owner as the controller of sinkID.
func (r *Registry) Claim(sinkID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.owners[sinkID]; ok && b.owner != owner {
		return fmt.Errorf("%w: sink %q", model.ErrSinkBusy, sinkID)
	}
	r.owners[sinkID] = &binding{owner: owner}
	return nil
}

// Release drops the claim if owner still holds it.
func (r *Registry) Release(sinkID, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.owners[sinkID]; ok && b.owner == owner {
		delete(r.owners, sinkID)
	}
}

// Bind marks generation gen as the live engine handle on sinkID. Binding while
// another handle is live fails with ErrHandleLeak.
func (r *Registry) Bind(sinkID, owner string, gen uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.owners[sinkID]
	if !ok || b.owner != owner {
		return fmt.Errorf("%w: sink %q not claimed by this controller", model.ErrSinkBusy, sinkID)
	}
	if b.attached {
		return fmt.Errorf("%w: sink %q generation %d", model.ErrHandleLeak, sinkID, b.generation)
	}
	b.generation = gen
	b.attached = true
	return nil
}

// Unbind clears the live handle if it still belongs to gen.
func (r *Registry) Unbind(sinkID, owner string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.owners[sinkID]; ok && b.owner == owner && b.generation == gen {
		b.attached = false
	}
}

// Attached reports the live generation bound to sinkID, if any.
func (r *Registry) Attached(sinkID string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.owners[sinkID]
	if !ok || !b.attached {
		return 0, false
	}
	return b.generation, true
}
