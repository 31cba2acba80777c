// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manager owns the set of live playback controllers, one per sink,
// on top of a shared engine and sink ownership table.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/controller"
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	xlog "github.com/ManuGH/hlswatch/internal/log"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrCapacity = errors.New("session capacity reached")
)

// SinkFactory creates the media sink for a new session. Sinks that have a
// Close() method are closed when the session is removed.
type SinkFactory func(id string) (ports.Sink, error)

type Config struct {
	Controller  controller.Config
	MaxSessions int
}

type Option func(*Manager)

func WithClock(c ports.Clock) Option { return func(m *Manager) { m.clock = c } }

func WithRecorder(r ports.Recorder) Option { return func(m *Manager) { m.recorder = r } }

// WithObserver receives every published controller snapshot. fn must not call
// back into the Manager.
func WithObserver(fn func(controller.Snapshot)) Option {
	return func(m *Manager) { m.observer = fn }
}

func WithLogger(l zerolog.Logger) Option { return func(m *Manager) { m.logger = l } }

type entry struct {
	ctrl *controller.Controller
	sink ports.Sink
}

// Manager creates, looks up and removes controllers.
type Manager struct {
	engine   ports.Engine
	sinks    SinkFactory
	cfg      Config
	registry *controller.Registry
	clock    ports.Clock
	recorder ports.Recorder
	observer func(controller.Snapshot)
	logger   zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	entries map[string]*entry
}

func New(engine ports.Engine, sinks SinkFactory, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		engine:   engine,
		sinks:    sinks,
		cfg:      cfg,
		registry: controller.NewRegistry(),
		clock:    ports.SystemClock{},
		logger:   xlog.WithComponent("playback.manager"),
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now is the manager's clock reading.
func (m *Manager) Now() time.Time { return m.clock.Now() }

// Open creates a controller on sinkID (generated when empty) and loads
// rawURL. The URL is validated before any resource is allocated.
func (m *Manager) Open(sinkID, rawURL string) (*controller.Controller, error) {
	if _, err := model.ValidateSourceURL(rawURL, m.cfg.Controller.ManifestExtensions); err != nil {
		return nil, err
	}
	if sinkID == "" {
		sinkID = "sink-" + uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, model.ErrClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.entries) >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("%w (%d)", ErrCapacity, m.cfg.MaxSessions)
	}
	for _, e := range m.entries {
		if e.sink.ID() == sinkID {
			return nil, fmt.Errorf("%w: sink %q", model.ErrSinkBusy, sinkID)
		}
	}

	sink, err := m.sinks(sinkID)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}
	opts := []controller.Option{
		controller.WithClock(m.clock),
		controller.WithRegistry(m.registry),
	}
	if m.recorder != nil {
		opts = append(opts, controller.WithRecorder(m.recorder))
	}
	if m.observer != nil {
		opts = append(opts, controller.WithObserver(m.observer))
	}
	ctrl, err := controller.New(sink, m.engine, m.cfg.Controller, opts...)
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	if err := ctrl.LoadStream(rawURL); err != nil {
		_ = ctrl.Close(context.Background())
		closeSink(sink)
		return nil, err
	}
	m.entries[ctrl.ID()] = &entry{ctrl: ctrl, sink: sink}
	m.logger.Info().
		Str("controller_id", ctrl.ID()).
		Str(xlog.FieldSinkID, sinkID).
		Int("sessions", len(m.entries)).
		Msg("session opened")
	return ctrl, nil
}

// Get returns the controller with the given id.
func (m *Manager) Get(id string) (*controller.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.ctrl, nil
}

// List returns snapshots of every controller ordered by start time.
func (m *Manager) List() []controller.Snapshot {
	m.mu.RLock()
	ctrls := make([]*controller.Controller, 0, len(m.entries))
	for _, e := range m.entries {
		ctrls = append(ctrls, e.ctrl)
	}
	m.mu.RUnlock()

	out := make([]controller.Snapshot, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ControllerID < out[j].ControllerID
	})
	return out
}

// Len is the number of owned controllers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Remove destroys the session, releases its sink and forgets the controller.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	err := e.ctrl.Close(ctx)
	closeSink(e.sink)
	m.logger.Info().Str("controller_id", id).Msg("session removed")
	return err
}

// Close removes every session. Further Opens fail with model.ErrClosed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Remove(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeSink(s ports.Sink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
