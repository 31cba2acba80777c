// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"strings"
	"sync"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
)

var testLevels = []model.QualityLevel{
	model.NewQualityLevel(0, 800_000, 640, 360, "avc1.4d401e"),
	model.NewQualityLevel(1, 2_500_000, 1280, 720, "avc1.4d401f"),
}

// scriptedEngine attaches immediately and parses every manifest, except
// for URLs containing "broken" which fail with a fatal error.
type scriptedEngine struct{}

func (scriptedEngine) Attach(ports.Sink) (ports.Handle, error) {
	return &scriptedHandle{}, nil
}

type scriptedHandle struct {
	mu       sync.Mutex
	fn       func(ports.EngineEvent)
	detached bool
}

func (h *scriptedHandle) emit(ev ports.EngineEvent) {
	go func() {
		h.mu.Lock()
		fn, detached := h.fn, h.detached
		h.mu.Unlock()
		if fn != nil && !detached {
			fn(ev)
		}
	}()
}

func (h *scriptedHandle) LoadSource(url string) error {
	if strings.Contains(url, "broken") {
		h.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{
			Fatal: true, Category: model.CategoryOther, Details: "unsupported manifest",
		}})
		return nil
	}
	h.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	return nil
}

func (h *scriptedHandle) StartLoad() error          { return nil }
func (h *scriptedHandle) RecoverMediaError() error  { return nil }
func (h *scriptedHandle) SetQualityLevel(int) error { return nil }

func (h *scriptedHandle) Subscribe(fn func(ports.EngineEvent)) func() {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
	h.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	return func() {
		h.mu.Lock()
		h.fn = nil
		h.mu.Unlock()
	}
}

func (h *scriptedHandle) Detach() error {
	h.mu.Lock()
	h.detached = true
	h.mu.Unlock()
	return nil
}

type quietSink struct{ id string }

func (s *quietSink) ID() string                             { return s.id }
func (s *quietSink) Play() error                            { return nil }
func (s *quietSink) Pause()                                 {}
func (s *quietSink) SetMuted(bool)                          {}
func (s *quietSink) SetVolume(float64)                      {}
func (s *quietSink) Seek(float64)                           {}
func (s *quietSink) Reset()                                 {}
func (s *quietSink) Subscribe(func(ports.SinkEvent)) func() { return func() {} }

func newQuietSink(id string) (ports.Sink, error) { return &quietSink{id: id}, nil }
