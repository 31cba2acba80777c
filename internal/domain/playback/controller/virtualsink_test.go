// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	"github.com/ManuGH/hlswatch/internal/engine/virtualsink"
)

// lateSink keeps the playhead moving right up to the moment the controller
// unsubscribes, so events are still queued when the session is replaced.
type lateSink struct {
	*virtualsink.Sink
	clock *ports.ManualClock
	armed atomic.Bool
}

func (s *lateSink) Subscribe(fn func(ports.SinkEvent)) func() {
	cancel := s.Sink.Subscribe(fn)
	return func() {
		if s.armed.CompareAndSwap(true, false) {
			s.clock.Advance(5 * time.Second)
			s.Sink.Seek(10)
			s.Sink.Seek(55)
		}
		cancel()
	}
}

func TestSupersedeDropsQueuedSinkEvents(t *testing.T) {
	sinkClock := ports.NewManualClock(testStart)
	inner := virtualsink.New(virtualsink.Options{ID: "video-1", Clock: sinkClock, Tick: time.Second})
	t.Cleanup(inner.Close)
	sink := &lateSink{Sink: inner, clock: sinkClock}

	engine := &fakeEngine{}
	ctrl, err := New(sink, engine, DefaultConfig(), WithClock(ports.NewManualClock(testStart)), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, ctrl.Close(ctx))
	})

	require.NoError(t, ctrl.LoadStream(streamURL))
	handle := engine.last()
	handle.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	require.Equal(t, model.StatusPlaying, ctrl.Snapshot().Status)

	inner.SetSource(60, false)
	sinkClock.Advance(3 * time.Second)
	require.Eventually(t, func() bool { return ctrl.State().CurrentTime == 3 }, time.Second, 5*time.Millisecond)

	sink.armed.Store(true)
	require.NoError(t, ctrl.LoadStream("https://example.com/live/next.m3u8"))
	assert.False(t, sink.armed.Load())
	assert.Zero(t, inner.Position())

	assert.Never(t, func() bool { return ctrl.State().CurrentTime != 0 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 2, engine.count())
}
