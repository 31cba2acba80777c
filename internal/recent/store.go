// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/metrics"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("recent streams store unavailable")

// Store persists recent streams.
type Store interface {
	// Add stores s. ID and ViewedAt are set by the caller.
	Add(ctx context.Context, s Stream) error
	// List returns up to limit entries, newest ViewedAt first.
	List(ctx context.Context, limit int) ([]Stream, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend string
	// Dir holds the file and sqlite databases.
	Dir       string
	RedisAddr string
	RedisKey  string
	// Capacity bounds the number of retained entries; 0 keeps defaultCapacity.
	Capacity int
}

const defaultCapacity = 500

// NewStore opens the configured backend, wrapped with operation metrics.
func NewStore(cfg StoreConfig, logger zerolog.Logger) (Store, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case "", BackendMemory:
		cfg.Backend = BackendMemory
		s = NewMemoryStore(cfg.Capacity)
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("recent: %s backend requires a directory", cfg.Backend)
		}
		s, err = NewFileStore(filepath.Join(cfg.Dir, "recent-streams.json"), cfg.Capacity)
	case BackendSQLite:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("recent: %s backend requires a directory", cfg.Backend)
		}
		s, err = NewSQLiteStore(filepath.Join(cfg.Dir, "recent.sqlite"), cfg.Capacity)
	case BackendRedis:
		s, err = NewRedisStore(RedisConfig{Addr: cfg.RedisAddr, Key: cfg.RedisKey, Capacity: cfg.Capacity})
	default:
		return nil, fmt.Errorf("unknown recent store backend: %s (supported: memory, file, sqlite, redis)", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Info().Str("backend", cfg.Backend).Msg("recent streams store opened")
	return &instrumented{next: s, backend: cfg.Backend}, nil
}

// instrumented counts operations per backend and result.
type instrumented struct {
	next    Store
	backend string
}

func (s *instrumented) Add(ctx context.Context, st Stream) error {
	err := s.next.Add(ctx, st)
	metrics.IncStoreOp("add", s.backend, err)
	return err
}

func (s *instrumented) List(ctx context.Context, limit int) ([]Stream, error) {
	out, err := s.next.List(ctx, limit)
	metrics.IncStoreOp("list", s.backend, err)
	return out, err
}

func (s *instrumented) Ping(ctx context.Context) error { return s.next.Ping(ctx) }
func (s *instrumented) Close() error                   { return s.next.Close() }

// sortNewestFirst orders by ViewedAt descending; among equal timestamps the
// entry added later (higher index) comes first.
func sortNewestFirst(items []Stream) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].ViewedAt.After(items[b].ViewedAt)
	})
}

func clampLimit(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}
