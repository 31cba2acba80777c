// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

type fileDoc struct {
	Version int      `json:"version"`
	Streams []Stream `json:"streams"`
}

const fileDocVersion = 1

// FileStore keeps entries in memory and rewrites a JSON document atomically
// after every Add.
type FileStore struct {
	path string
	mem  *MemoryStore
	mu   sync.Mutex // serializes writes
}

// NewFileStore loads path if it exists.
func NewFileStore(path string, capacity int) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("recent: create dir: %w", err)
	}
	s := &FileStore{path: path, mem: NewMemoryStore(capacity)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("recent: read %s: %w", path, err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("recent: decode %s: %w", path, err)
	}
	if doc.Version != fileDocVersion {
		return nil, fmt.Errorf("recent: %s has unsupported version %d", path, doc.Version)
	}
	for _, st := range doc.Streams {
		_ = s.mem.Add(context.Background(), st)
	}
	return s, nil
}

func (s *FileStore) Add(ctx context.Context, st Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.Add(ctx, st); err != nil {
		return err
	}
	return s.flushLocked()
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Stream, error) {
	return s.mem.List(ctx, limit)
}

func (s *FileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flushLocked() error {
	s.mem.mu.RLock()
	doc := fileDoc{Version: fileDocVersion, Streams: append([]Stream(nil), s.mem.items...)}
	s.mem.mu.RUnlock()

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("%w: create pending file: %v", ErrUnavailable, err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrUnavailable, s.path, err)
	}
	return nil
}
