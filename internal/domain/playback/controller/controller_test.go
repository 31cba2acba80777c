// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
)

const streamURL = "https://bitdash-a.akamaihd.net/content/sintel/hls/playlist.m3u8"

var testStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	ctrl   *Controller
	engine *fakeEngine
	sink   *fakeSink
	clock  *ports.ManualClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		engine: &fakeEngine{},
		sink:   newFakeSink("video-1"),
		clock:  ports.NewManualClock(testStart),
	}
	all := append([]Option{WithClock(h.clock), WithLogger(zerolog.Nop())}, opts...)
	ctrl, err := New(h.sink, h.engine, DefaultConfig(), all...)
	require.NoError(t, err)
	h.ctrl = ctrl
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, ctrl.Close(ctx))
	})
	return h
}

var testLevels = []model.QualityLevel{
	model.NewQualityLevel(0, 800_000, 640, 360, "avc1.4d401e"),
	model.NewQualityLevel(1, 2_500_000, 1280, 720, "avc1.4d401f"),
	model.NewQualityLevel(2, 5_000_000, 1920, 1080, "avc1.640028"),
}

// play drives a fresh load to PLAYING.
func (h *harness) play(t *testing.T) *fakeHandle {
	t.Helper()
	require.NoError(t, h.ctrl.LoadStream(streamURL))
	handle := h.engine.last()
	require.NotNil(t, handle)
	handle.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	require.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)
	return handle
}

func TestLoadStreamRejectsInvalidURL(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.LoadStream("https://x/a.mp4")
	require.ErrorIs(t, err, model.ErrInvalidSource)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Status)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, 0, h.engine.count())
}

func TestLoadStreamInvalidURLKeepsCurrentSession(t *testing.T) {
	h := newHarness(t)
	h.play(t)
	before := h.ctrl.Snapshot()

	require.ErrorIs(t, h.ctrl.LoadStream("not a url"), model.ErrInvalidSource)

	after := h.ctrl.Snapshot()
	assert.Equal(t, before.SessionID, after.SessionID)
	assert.Equal(t, model.StatusPlaying, after.Status)
	assert.Equal(t, 1, h.engine.count())
}

func TestLoadStreamHappyPath(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.LoadStream(streamURL))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusAttaching, snap.Status)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, streamURL, snap.URL)
	assert.Equal(t, h.clock.Now(), snap.StartedAt)

	handle := h.engine.last()
	handle.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	loaded, _, _, _, _ := handle.snapshot()
	assert.Equal(t, []string{streamURL}, loaded)
	assert.Equal(t, model.StatusAttaching, h.ctrl.Snapshot().Status)

	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	snap = h.ctrl.Snapshot()
	assert.Equal(t, model.StatusPlaying, snap.Status)
	if diff := cmp.Diff(testLevels, snap.Levels); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "720p", snap.Levels[1].Name)
	assert.Equal(t, 1, h.sink.plays)
	assert.Nil(t, snap.Warning)
	assert.True(t, snap.State.SelectedQuality.IsAuto())
	assert.Equal(t, model.DefaultVolume, snap.State.Volume)
}

func TestMediaPlaylistYieldsEmptyCatalog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.LoadStream(streamURL))
	handle := h.engine.last()
	handle.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed})

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusPlaying, snap.Status)
	assert.Empty(t, snap.Levels)
	require.ErrorIs(t, h.ctrl.SetQuality(model.Level(0)), model.ErrInvalidSelection)
	require.NoError(t, h.ctrl.SetQuality(model.AutoQuality))
}

func TestLoadStreamSupersedesPreviousSession(t *testing.T) {
	h := newHarness(t)
	first := h.play(t)
	firstSnap := h.ctrl.Snapshot()
	staleSubs := first.subscribers()
	staleSinkSubs := h.sink.subscribers()

	require.NoError(t, h.ctrl.LoadStream("https://x/b.m3u8"))
	second := h.engine.last()
	require.NotSame(t, first, second)

	_, _, _, detach, _ := first.snapshot()
	assert.Equal(t, 1, detach)

	snap := h.ctrl.Snapshot()
	assert.NotEqual(t, firstSnap.SessionID, snap.SessionID)
	assert.Greater(t, snap.Generation, firstSnap.Generation)
	assert.Equal(t, model.StatusAttaching, snap.Status)
	assert.Empty(t, snap.Levels)

	// Events already in flight from the first handle must not leak in.
	for _, fn := range staleSubs {
		fn(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
		fn(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryOther}})
	}
	for _, fn := range staleSinkSubs {
		fn(ports.SinkEvent{Kind: ports.SinkTimeUpdate, CurrentTime: 42})
	}
	after := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusAttaching, after.Status)
	assert.Empty(t, after.Levels)
	assert.Zero(t, after.State.CurrentTime)
	assert.Nil(t, after.Error)
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Destroy() // no session yet
	assert.Equal(t, model.StatusIdle, h.ctrl.Snapshot().Status)

	handle := h.play(t)
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkDurationChange, Duration: 120})
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkTimeUpdate, CurrentTime: 30})

	h.ctrl.Destroy()
	h.ctrl.Destroy()

	_, _, _, detach, _ := handle.snapshot()
	assert.Equal(t, 1, detach)
	assert.Equal(t, 1, h.sink.resets)
	assert.Equal(t, 0, h.sink.subscriberCount())
	assert.Empty(t, handle.subscribers())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusDestroyed, snap.Status)
	assert.Empty(t, snap.Levels)
	assert.Zero(t, snap.State.CurrentTime)
	assert.False(t, snap.State.DurationKnown())

	_, ok := h.ctrl.registry.Attached(h.sink.ID())
	assert.False(t, ok)
}

func TestEventsAfterDestroyAreDropped(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)
	stale := handle.subscribers()

	h.ctrl.Destroy()
	for _, fn := range stale {
		fn(ports.EngineEvent{Kind: ports.EngineMediaAttached})
		fn(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	}

	loaded, _, _, _, _ := handle.snapshot()
	assert.Len(t, loaded, 1)
	assert.Equal(t, model.StatusDestroyed, h.ctrl.Snapshot().Status)
	assert.Empty(t, h.ctrl.Snapshot().Levels)
}

func TestLoadAfterDestroyStartsNewSession(t *testing.T) {
	h := newHarness(t)
	h.play(t)
	h.ctrl.Destroy()

	require.NoError(t, h.ctrl.LoadStream(streamURL))
	assert.Equal(t, model.StatusAttaching, h.ctrl.Snapshot().Status)
	assert.Equal(t, 2, h.engine.count())
}

func TestNetworkErrorSchedulesRetryLoad(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork, Details: "manifest timeout"}})
	assert.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)
	assert.Equal(t, 1, h.ctrl.Snapshot().RecoveryAttempts)

	h.clock.Advance(999 * time.Millisecond)
	_, starts, _, _, _ := handle.snapshot()
	assert.Equal(t, 0, starts)

	h.clock.Advance(time.Millisecond)
	_, starts, _, _, _ = handle.snapshot()
	assert.Equal(t, 1, starts)
}

func TestMediaErrorRecoversPipeline(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryMedia}})
	h.clock.Advance(time.Second)

	_, starts, recoveries, _, _ := handle.snapshot()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 1, recoveries)
	assert.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)
}

func TestRecoveryBudgetExhaustionEscalates(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)
	sig := model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork, Details: "segment 404"}

	for i := 1; i <= 3; i++ {
		handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
		h.clock.Advance(time.Duration(i) * time.Second)
		require.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status, "attempt %d", i)
	}
	_, starts, _, _, _ := handle.snapshot()
	assert.Equal(t, 3, starts)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusErrored, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, model.CategoryNetwork, snap.Error.Category)
	assert.True(t, snap.Error.Retryable)
	assert.Contains(t, snap.Error.Text(), "Retry")

	_, _, _, detach, _ := handle.snapshot()
	assert.Equal(t, 1, detach)
}

func TestBackToBackErrorsEachRunTheirRecovery(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)
	sig := model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork, Details: "segment 503"}

	for i := 0; i < 3; i++ {
		handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
	}
	require.Equal(t, 3, h.ctrl.Snapshot().RecoveryAttempts)
	require.Equal(t, 3, h.clock.Pending())

	// Attempts fire at 1s, 2s and 3s after the errors.
	h.clock.Advance(time.Second)
	_, starts, _, _, _ := handle.snapshot()
	assert.Equal(t, 1, starts)

	h.clock.Advance(10 * time.Second)
	_, starts, _, _, _ = handle.snapshot()
	assert.Equal(t, 3, starts)
	assert.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
	assert.Equal(t, model.StatusErrored, h.ctrl.Snapshot().Status)
}

func TestDestroyCancelsEveryQueuedRecovery(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork}})
	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryMedia}})
	require.Equal(t, 2, h.clock.Pending())

	h.ctrl.Destroy()
	assert.Equal(t, 0, h.clock.Pending())
	h.clock.Advance(time.Minute)
	_, starts, recoveries, _, _ := handle.snapshot()
	assert.Zero(t, starts)
	assert.Zero(t, recoveries)
}

func TestManifestParsedResetsRecoveryBudget(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)
	sig := model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork}

	for i := 0; i < 3; i++ {
		handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
		h.clock.Advance(5 * time.Second)
	}
	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})
	assert.Equal(t, 0, h.ctrl.Snapshot().RecoveryAttempts)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: sig})
	assert.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)
	// Re-parse while playing does not re-trigger autoplay.
	assert.Equal(t, 1, h.sink.plays)
}

func TestOtherFatalErrorTearsDown(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryOther, Details: "manifest parse failed"}})

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusErrored, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "manifest parse failed", snap.Error.Message)
	_, _, _, detach, _ := handle.snapshot()
	assert.Equal(t, 1, detach)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestNonFatalErrorBecomesWarning(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Category: model.CategoryNetwork, Details: "fragment stalled"}})

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusPlaying, snap.Status)
	require.NotNil(t, snap.Warning)
	assert.Equal(t, model.WarnEngine, snap.Warning.Kind)
	assert.Equal(t, 0, snap.RecoveryAttempts)
}

func TestDestroyCancelsPendingRecovery(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryNetwork}})
	require.Equal(t, 1, h.clock.Pending())
	h.ctrl.Destroy()
	h.clock.Advance(time.Minute)

	_, starts, _, _, _ := handle.snapshot()
	assert.Equal(t, 0, starts)
}

func TestRecoveryTimerFromSupersededGenerationIsDropped(t *testing.T) {
	h := newHarness(t)
	sched := &captureClock{Clock: h.clock}
	h.ctrl.clock = sched
	handle := h.play(t)

	handle.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryMedia}})
	fns := sched.scheduled()
	require.Len(t, fns, 1)

	// The timer body runs after the session moved on, as if Stop lost the race.
	require.NoError(t, h.ctrl.LoadStream("https://x/other.m3u8"))
	fns[0]()

	_, _, recoveries, _, _ := handle.snapshot()
	assert.Equal(t, 0, recoveries)
	_, _, recoveries, _, _ = h.engine.last().snapshot()
	assert.Equal(t, 0, recoveries)
}

func TestRetry(t *testing.T) {
	h := newHarness(t)
	first := h.play(t)

	require.ErrorIs(t, h.ctrl.Retry(), model.ErrNotErrored)

	first.emit(ports.EngineEvent{Kind: ports.EngineError, Error: model.ErrorSignal{Fatal: true, Category: model.CategoryOther}})
	before := h.ctrl.Snapshot()
	require.Equal(t, model.StatusErrored, before.Status)

	require.NoError(t, h.ctrl.Retry())
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusAttaching, snap.Status)
	assert.Equal(t, before.SessionID, snap.SessionID)
	assert.Nil(t, snap.Error)
	assert.Equal(t, 2, h.engine.count())

	second := h.engine.last()
	second.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	loaded, _, _, _, _ := second.snapshot()
	assert.Equal(t, []string{streamURL}, loaded)
}

func TestRetryWithoutSession(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.ctrl.Retry(), model.ErrNoSession)
}

func TestAttachFailureErrorsSession(t *testing.T) {
	h := newHarness(t)
	h.engine.attachErr = errors.New("no decoder")

	require.NoError(t, h.ctrl.LoadStream(streamURL))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusErrored, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, model.CategoryOther, snap.Error.Category)
}

func TestSetQuality(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.ctrl.SetQuality(model.Level(1)), model.ErrInvalidSelection)

	handle := h.play(t)

	require.ErrorIs(t, h.ctrl.SetQuality(model.Level(7)), model.ErrInvalidSelection)
	_, _, _, _, levels := handle.snapshot()
	assert.Empty(t, levels)
	assert.True(t, h.ctrl.State().SelectedQuality.IsAuto())

	require.NoError(t, h.ctrl.SetQuality(model.Level(2)))
	id, ok := h.ctrl.State().SelectedQuality.LevelID()
	require.True(t, ok)
	assert.Equal(t, 2, id)

	require.NoError(t, h.ctrl.SetQuality(model.AutoQuality))
	_, _, _, _, levels = handle.snapshot()
	assert.Equal(t, []int{2, -1}, levels)
	assert.True(t, h.ctrl.State().SelectedQuality.IsAuto())
}

func TestSelectionFallsBackToAutoWhenLevelDisappears(t *testing.T) {
	h := newHarness(t)
	handle := h.play(t)
	require.NoError(t, h.ctrl.SetQuality(model.Level(2)))

	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels[:2]})
	assert.True(t, h.ctrl.State().SelectedQuality.IsAuto())
}

func TestAutoplayBlockedFallsBackToMuted(t *testing.T) {
	h := newHarness(t)
	h.sink.playErrs = []error{ports.ErrAutoplayBlocked}

	h.play(t)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, 2, h.sink.plays)
	assert.True(t, h.sink.muted)
	assert.True(t, snap.State.Muted)
	assert.Nil(t, snap.Warning)
}

func TestAutoplayFailureIsWarningOnly(t *testing.T) {
	h := newHarness(t)
	h.sink.playErrs = []error{ports.ErrAutoplayBlocked, ports.ErrAutoplayBlocked}

	h.play(t)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusPlaying, snap.Status)
	require.NotNil(t, snap.Warning)
	assert.Equal(t, model.WarnAutoplay, snap.Warning.Kind)
	assert.Nil(t, snap.Error)
}

func TestAutoplayFallbackDisabled(t *testing.T) {
	h := &harness{engine: &fakeEngine{}, sink: newFakeSink("video-2"), clock: ports.NewManualClock(testStart)}
	cfg := DefaultConfig()
	cfg.AutoplayMutedFallback = false
	ctrl, err := New(h.sink, h.engine, cfg, WithClock(h.clock), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	h.ctrl = ctrl
	defer func() { require.NoError(t, ctrl.Close(context.Background())) }()
	h.sink.playErrs = []error{ports.ErrAutoplayBlocked}

	h.play(t)

	assert.Equal(t, 1, h.sink.plays)
	assert.False(t, h.sink.muted)
	require.NotNil(t, h.ctrl.Snapshot().Warning)
}

func TestSinkEventsDriveStateAndBuffering(t *testing.T) {
	h := newHarness(t)
	h.play(t)

	h.sink.emit(ports.SinkEvent{Kind: ports.SinkPlay})
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkDurationChange, Duration: 100})
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkTimeUpdate, CurrentTime: 10, Buffered: []ports.TimeRange{{Start: 0, End: 25}}})

	st := h.ctrl.State()
	assert.True(t, st.IsPlaying)
	assert.Equal(t, 10.0, st.CurrentTime)
	assert.InDelta(t, 0.25, st.BufferedFraction, 1e-9)

	h.sink.emit(ports.SinkEvent{Kind: ports.SinkWaiting})
	assert.Equal(t, model.StatusBuffering, h.ctrl.Snapshot().Status)
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkPlaying})
	assert.Equal(t, model.StatusPlaying, h.ctrl.Snapshot().Status)

	h.sink.emit(ports.SinkEvent{Kind: ports.SinkPause})
	assert.False(t, h.ctrl.State().IsPlaying)
}

func TestPlayerControls(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.ctrl.SetVolume(0.5), model.ErrNoSession)

	h.play(t)
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkDurationChange, Duration: 200})

	require.NoError(t, h.ctrl.SetMuted(true))
	require.NoError(t, h.ctrl.SetVolume(0.4))
	st := h.ctrl.State()
	assert.Equal(t, 0.4, st.Volume)
	assert.False(t, st.Muted)
	assert.False(t, h.sink.muted)

	require.NoError(t, h.ctrl.SetVolume(3))
	assert.Equal(t, 1.0, h.ctrl.State().Volume)

	require.NoError(t, h.ctrl.SeekFraction(0.5))
	assert.Equal(t, []float64{100}, h.sink.seeks)
	assert.Equal(t, 100.0, h.ctrl.State().CurrentTime)

	require.NoError(t, h.ctrl.SetFullscreen(true))
	assert.True(t, h.ctrl.State().Fullscreen)

	h.sink.emit(ports.SinkEvent{Kind: ports.SinkPlay})
	require.NoError(t, h.ctrl.TogglePlay())
	assert.Equal(t, 1, h.sink.pauses)
	h.sink.emit(ports.SinkEvent{Kind: ports.SinkPause})
	require.NoError(t, h.ctrl.TogglePlay())
	assert.Equal(t, 2, h.sink.plays)
}

func TestSeekRequiresKnownDuration(t *testing.T) {
	h := newHarness(t)
	h.play(t)
	require.ErrorIs(t, h.ctrl.SeekFraction(0.5), model.ErrSeekUnavailable)
	assert.Empty(t, h.sink.seeks)
}

type recordingRecorder struct {
	mu     sync.Mutex
	starts []ports.SessionStart
	err    error
	done   chan struct{}
}

func (r *recordingRecorder) RecordSessionStart(_ context.Context, s ports.SessionStart) error {
	r.mu.Lock()
	r.starts = append(r.starts, s)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func TestRecorderCalledOncePerLoad(t *testing.T) {
	rec := &recordingRecorder{done: make(chan struct{}, 4)}
	h := newHarness(t, WithRecorder(rec))

	require.NoError(t, h.ctrl.LoadStream(streamURL))
	require.ErrorIs(t, h.ctrl.LoadStream("https://x/a.txt"), model.ErrInvalidSource)
	require.NoError(t, h.ctrl.LoadStream("https://x/b.m3u8"))

	for i := 0; i < 2; i++ {
		select {
		case <-rec.done:
		case <-time.After(time.Second):
			t.Fatal("recorder not called")
		}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.starts, 2)
	urls := []string{rec.starts[0].URL, rec.starts[1].URL}
	assert.ElementsMatch(t, []string{streamURL, "https://x/b.m3u8"}, urls)
}

func TestRecorderFailureDoesNotAffectPlayback(t *testing.T) {
	rec := &recordingRecorder{done: make(chan struct{}, 1), err: errors.New("disk full")}
	h := newHarness(t, WithRecorder(rec))

	handle := func() *fakeHandle {
		require.NoError(t, h.ctrl.LoadStream(streamURL))
		<-rec.done
		return h.engine.last()
	}()
	handle.emit(ports.EngineEvent{Kind: ports.EngineMediaAttached})
	handle.emit(ports.EngineEvent{Kind: ports.EngineManifestParsed, Levels: testLevels})

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.StatusPlaying, snap.Status)
	assert.Nil(t, snap.Error)
}

func TestSinkOwnership(t *testing.T) {
	reg := NewRegistry()
	sink := newFakeSink("shared")
	engine := &fakeEngine{}

	a, err := New(sink, engine, DefaultConfig(), WithRegistry(reg), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = New(sink, engine, DefaultConfig(), WithRegistry(reg), WithLogger(zerolog.Nop()))
	require.ErrorIs(t, err, model.ErrSinkBusy)

	require.NoError(t, a.Close(context.Background()))
	b, err := New(sink, engine, DefaultConfig(), WithRegistry(reg), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, b.Close(context.Background()))

	require.ErrorIs(t, a.LoadStream(streamURL), model.ErrClosed)
}

func TestRegistryRejectsSecondBinding(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Claim("s", "owner"))
	require.NoError(t, reg.Bind("s", "owner", 1))
	require.ErrorIs(t, reg.Bind("s", "owner", 2), model.ErrHandleLeak)

	reg.Unbind("s", "owner", 2) // wrong generation: no-op
	gen, ok := reg.Attached("s")
	require.True(t, ok)
	assert.Equal(t, uint64(1), gen)

	reg.Unbind("s", "owner", 1)
	require.NoError(t, reg.Bind("s", "owner", 2))
	require.ErrorIs(t, reg.Bind("s", "intruder", 3), model.ErrSinkBusy)
}

func TestObserverReceivesSnapshots(t *testing.T) {
	var mu sync.Mutex
	var seen []model.Status
	h := newHarness(t, WithObserver(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Status)
	}))

	h.play(t)
	h.ctrl.Destroy()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, model.StatusAttaching, seen[0])
	assert.Equal(t, model.StatusDestroyed, seen[len(seen)-1])
	assert.Contains(t, seen, model.StatusPlaying)
}

func TestTaskGroupCloseAndWait(t *testing.T) {
	var g taskGroup
	block := make(chan struct{})
	require.True(t, g.Go(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, g.CloseAndWait(ctx))
	close(block)

	require.NoError(t, g.CloseAndWait(context.Background()))
	assert.False(t, g.Go(func() {}))
}
