// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"strings"
	"sync"
	"time"
)

// HostBreakers keeps one CircuitBreaker per upstream host so a failing origin
// does not block manifests served from other hosts.
type HostBreakers struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	opts         []Option

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewHostBreakers(name string, threshold int, resetTimeout time.Duration, opts ...Option) *HostBreakers {
	return &HostBreakers{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		opts:         opts,
		breakers:     make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for host, creating it on first use. Host matching
// is case-insensitive.
func (h *HostBreakers) For(host string) *CircuitBreaker {
	key := strings.ToLower(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	cb, ok := h.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(h.name, h.threshold, h.resetTimeout, h.opts...)
		h.breakers[key] = cb
	}
	return cb
}

// Open lists hosts whose breaker is currently open.
func (h *HostBreakers) Open() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var hosts []string
	for host, cb := range h.breakers {
		if cb.State() == StateOpen {
			hosts = append(hosts, host)
		}
	}
	return hosts
}
