// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	xlog "github.com/ManuGH/hlswatch/internal/log"
)

// ErrInvalidLimit is returned for negative list limits.
var ErrInvalidLimit = errors.New("invalid limit")

// Config bounds listing and validation.
type Config struct {
	DefaultLimit       int
	MaxLimit           int
	ManifestExtensions []string
}

// DefaultConfig lists three entries by default, like the home page.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:       3,
		MaxLimit:           50,
		ManifestExtensions: model.DefaultManifestExtensions,
	}
}

// Service validates, titles and stores recent streams. It also serves as the
// session controller's recorder.
type Service struct {
	store  Store
	cfg    Config
	clock  ports.Clock
	logger zerolog.Logger
}

var _ ports.Recorder = (*Service)(nil)

// NewService wraps store. A nil clock selects the wall clock.
func NewService(store Store, cfg Config, clock ports.Clock) *Service {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if len(cfg.ManifestExtensions) == 0 {
		cfg.ManifestExtensions = def.ManifestExtensions
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		logger: xlog.WithComponent("recent"),
	}
}

// Record validates rawURL and stores it as viewed now.
func (s *Service) Record(ctx context.Context, rawURL string) (Stream, error) {
	return s.record(ctx, rawURL, s.clock.Now())
}

// RecordSessionStart implements ports.Recorder.
func (s *Service) RecordSessionStart(ctx context.Context, start ports.SessionStart) error {
	at := start.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	st, err := s.record(ctx, start.URL, at)
	if err != nil {
		return err
	}
	l := xlog.WithContext(ctx, s.logger)
	l.Debug().
		Str("stream_id", st.ID).
		Str(xlog.FieldURL, st.URL).
		Msg("session start recorded")
	return nil
}

func (s *Service) record(ctx context.Context, rawURL string, at time.Time) (Stream, error) {
	u, err := model.ValidateSourceURL(rawURL, s.cfg.ManifestExtensions)
	if err != nil {
		return Stream{}, err
	}
	st := Stream{
		ID:       uuid.NewString(),
		URL:      u,
		Title:    DeriveTitle(u),
		Quality:  DefaultQuality,
		IsLive:   true,
		ViewedAt: at.UTC(),
	}
	if err := s.store.Add(ctx, st); err != nil {
		return Stream{}, fmt.Errorf("record stream: %w", err)
	}
	return st, nil
}

// Recent lists entries newest first. limit 0 selects the default; larger
// limits are capped at the configured maximum.
func (s *Service) Recent(ctx context.Context, limit int) ([]Stream, error) {
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	case limit == 0:
		limit = s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		limit = s.cfg.MaxLimit
	}
	out, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent streams: %w", err)
	}
	if out == nil {
		out = []Stream{}
	}
	return out, nil
}

// Seed stores the sample streams, one second apart so they list in order.
func (s *Service) Seed(ctx context.Context) error {
	now := s.clock.Now().UTC()
	for i, sample := range Samples() {
		sample.ID = uuid.NewString()
		sample.ViewedAt = now.Add(-time.Duration(i) * time.Second)
		if err := s.store.Add(ctx, sample); err != nil {
			return fmt.Errorf("seed recent streams: %w", err)
		}
	}
	s.logger.Info().Int("count", len(Samples())).Msg("seeded sample streams")
	return nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
