// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"sync"
	"time"

	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
)

type fakeEngine struct {
	mu        sync.Mutex
	handles   []*fakeHandle
	attachErr error
}

func (e *fakeEngine) Attach(ports.Sink) (ports.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attachErr != nil {
		return nil, e.attachErr
	}
	h := &fakeHandle{subs: map[int]func(ports.EngineEvent){}}
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) last() *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.handles) == 0 {
		return nil
	}
	return e.handles[len(e.handles)-1]
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

type fakeHandle struct {
	mu          sync.Mutex
	subs        map[int]func(ports.EngineEvent)
	nextSub     int
	loaded      []string
	startLoads  int
	recoveries  int
	levels      []int
	detachCalls int
	loadErr     error
}

func (h *fakeHandle) LoadSource(url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = append(h.loaded, url)
	return h.loadErr
}

func (h *fakeHandle) StartLoad() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startLoads++
	return nil
}

func (h *fakeHandle) RecoverMediaError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recoveries++
	return nil
}

func (h *fakeHandle) SetQualityLevel(level int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.levels = append(h.levels, level)
	return nil
}

func (h *fakeHandle) Subscribe(fn func(ports.EngineEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *fakeHandle) Detach() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachCalls++
	return nil
}

// subscribers returns the live callbacks; tests keep them to simulate events
// that were already in flight when the handle was torn down.
func (h *fakeHandle) subscribers() []func(ports.EngineEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]func(ports.EngineEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		out = append(out, fn)
	}
	return out
}

func (h *fakeHandle) emit(ev ports.EngineEvent) {
	for _, fn := range h.subscribers() {
		fn(ev)
	}
}

func (h *fakeHandle) snapshot() (loaded []string, startLoads, recoveries, detach int, levels []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.loaded...), h.startLoads, h.recoveries, h.detachCalls, append([]int(nil), h.levels...)
}

type fakeSink struct {
	id string

	mu       sync.Mutex
	playErrs []error
	plays    int
	pauses   int
	muted    bool
	volume   float64
	seeks    []float64
	resets   int
	subs     map[int]func(ports.SinkEvent)
	nextSub  int
}

func newFakeSink(id string) *fakeSink {
	return &fakeSink{id: id, subs: map[int]func(ports.SinkEvent){}}
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	if len(s.playErrs) == 0 {
		return nil
	}
	err := s.playErrs[0]
	s.playErrs = s.playErrs[1:]
	return err
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
}

func (s *fakeSink) SetMuted(m bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = m
}

func (s *fakeSink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *fakeSink) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, t)
}

func (s *fakeSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSink) Subscribe(fn func(ports.SinkEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *fakeSink) subscribers() []func(ports.SinkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]func(ports.SinkEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func (s *fakeSink) emit(ev ports.SinkEvent) {
	for _, fn := range s.subscribers() {
		fn(ev)
	}
}

func (s *fakeSink) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// captureClock records scheduled callbacks without ever firing them.
type captureClock struct {
	ports.Clock
	mu  sync.Mutex
	fns []func()
}

func (c *captureClock) AfterFunc(_ time.Duration, fn func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
	return noopTimer{}
}

func (c *captureClock) scheduled() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]func(){}, c.fns...)
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }
