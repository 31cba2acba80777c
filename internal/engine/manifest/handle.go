// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	"github.com/ManuGH/hlswatch/internal/hls"
	xlog "github.com/ManuGH/hlswatch/internal/log"
	"github.com/ManuGH/hlswatch/internal/platform/dispatch"
)

var errDetached = errors.New("manifest: handle detached")

type handle struct {
	engine *Engine
	sink   ports.Sink
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	events *dispatch.Queue[ports.EngineEvent]

	mu       sync.Mutex
	detached bool
	url      string
	levels   int
	level    int
	timeline *hls.Timeline
}

// push queues ev for in-order delivery. Events raised after Detach are dropped.
func (h *handle) push(ev ports.EngineEvent) {
	h.events.Push(ev)
}

func (h *handle) Subscribe(fn func(ports.EngineEvent)) func() {
	return h.events.Subscribe(fn)
}

func (h *handle) LoadSource(url string) error {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return errDetached
	}
	h.url = url
	h.mu.Unlock()

	h.logger.Debug().Str(xlog.FieldURL, url).Msg("loading source")
	h.startFetch(url)
	return nil
}

func (h *handle) StartLoad() error {
	h.mu.Lock()
	url, detached := h.url, h.detached
	h.mu.Unlock()
	if detached {
		return errDetached
	}
	if url == "" {
		return errors.New("manifest: no source loaded")
	}
	h.logger.Info().Str(xlog.FieldURL, url).Msg("reloading source")
	h.startFetch(url)
	return nil
}

// RecoverMediaError has no decoder to reset; it re-announces the last known
// timeline so a simulating sink restarts its pipeline.
func (h *handle) RecoverMediaError() error {
	h.mu.Lock()
	detached, tl := h.detached, h.timeline
	h.mu.Unlock()
	if detached {
		return errDetached
	}
	h.logger.Info().Msg("media pipeline recovery requested")
	if ss, ok := h.sink.(SourceSink); ok && tl != nil {
		ss.SetSource(tl.Seconds(), tl.Live)
	}
	return nil
}

func (h *handle) SetQualityLevel(level int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return errDetached
	}
	if level != -1 && (level < 0 || level >= h.levels) {
		return fmt.Errorf("%w: level %d of %d", model.ErrInvalidSelection, level, h.levels)
	}
	h.level = level
	return nil
}

func (h *handle) Detach() error {
	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return nil
	}
	h.detached = true
	h.mu.Unlock()

	h.events.Close()
	h.cancel()
	return nil
}

func (h *handle) startFetch(url string) {
	h.engine.wg.Add(1)
	go func() {
		defer h.engine.wg.Done()
		h.fetchAndReport(url)
	}()
}

func (h *handle) fetchAndReport(url string) {
	res, err := h.engine.load(h.ctx, url)
	if err != nil {
		if h.ctx.Err() != nil {
			return
		}
		var fe *fetchError
		category := model.CategoryOther
		if errors.As(err, &fe) {
			category = fe.category
		}
		h.logger.Warn().Err(err).Str(xlog.FieldCategory, string(category)).Msg("manifest load failed")
		h.push(ports.EngineEvent{
			Kind:  ports.EngineError,
			Error: model.ErrorSignal{Fatal: true, Category: category, Details: err.Error()},
		})
		return
	}

	h.mu.Lock()
	h.levels = len(res.levels)
	if h.level >= h.levels {
		h.level = -1
	}
	if res.timeline != nil {
		h.timeline = res.timeline
	}
	h.mu.Unlock()

	if res.timeline != nil {
		if ss, ok := h.sink.(SourceSink); ok {
			ss.SetSource(res.timeline.Seconds(), res.timeline.Live)
		}
	}
	h.push(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: res.levels})
	if res.warning != "" {
		h.push(ports.EngineEvent{
			Kind:  ports.EngineError,
			Error: model.ErrorSignal{Fatal: false, Category: model.CategoryNetwork, Details: res.warning},
		})
	}
}
