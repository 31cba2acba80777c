// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory, in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []Stream
	capacity int
}

// NewMemoryStore returns a store retaining at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (m *MemoryStore) Add(_ context.Context, s Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, s)
	if over := len(m.items) - m.capacity; over > 0 {
		m.items = append([]Stream(nil), m.items[over:]...)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Stream, error) {
	m.mu.RLock()
	out := make([]Stream, len(m.items))
	copy(out, m.items)
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out[:clampLimit(limit, len(out))], nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
