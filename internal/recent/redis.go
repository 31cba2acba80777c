// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "hlswatch:recent-streams"

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Capacity int
}

// RedisStore keeps entries as JSON in a capped list, newest at the head.
type RedisStore struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("recent: redis backend requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	if cfg.Key == "" {
		cfg.Key = defaultRedisKey
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	return &RedisStore{client: client, key: cfg.Key, capacity: cfg.Capacity}
}

func (s *RedisStore) Add(ctx context.Context, st Stream) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, s.key, data)
		p.LTrim(ctx, s.key, 0, int64(s.capacity-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]Stream, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, int64(s.capacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]Stream, 0, len(raw))
	for _, item := range raw {
		var st Stream
		if err := json.Unmarshal([]byte(item), &st); err != nil {
			return nil, fmt.Errorf("%w: decode entry: %v", ErrUnavailable, err)
		}
		out = append(out, st)
	}
	// The list is newest-first by insertion; a stable sort keeps that order
	// among equal timestamps.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].ViewedAt.After(out[b].ViewedAt)
	})
	return out[:clampLimit(limit, len(out))], nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
