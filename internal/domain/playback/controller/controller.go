// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package controller owns the playback session lifecycle for one media sink:
// it attaches the streaming engine, reacts to engine and sink events, applies
// the recovery policy and exposes a consistent snapshot to callers.
//
// All mutations are serialized by a single mutex. Engine and sink callbacks
// carry the generation id of the handle they were registered for; callbacks
// from a superseded generation are dropped.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/bridge"
	"github.com/ManuGH/hlswatch/internal/domain/playback/catalog"
	"github.com/ManuGH/hlswatch/internal/domain/playback/lifecycle"
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	"github.com/ManuGH/hlswatch/internal/domain/playback/recovery"
	xlog "github.com/ManuGH/hlswatch/internal/log"
	"github.com/ManuGH/hlswatch/internal/metrics"
)

const defaultRecorderTimeout = 5 * time.Second

// Config tunes recovery and autoplay behavior.
type Config struct {
	MaxAttempts           int
	BaseDelay             time.Duration
	AutoplayMutedFallback bool
	ManifestExtensions    []string
	RecorderTimeout       time.Duration
}

// DefaultConfig mirrors the web player defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:           recovery.DefaultMaxAttempts,
		BaseDelay:             recovery.DefaultBaseDelay,
		AutoplayMutedFallback: true,
		ManifestExtensions:    model.DefaultManifestExtensions,
		RecorderTimeout:       defaultRecorderTimeout,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for timestamps and recovery delays.
func WithClock(clock ports.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRecorder installs the recent-sessions recorder.
func WithRecorder(r ports.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRegistry shares a sink ownership table between controllers.
func WithRegistry(r *Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// WithLogger sets the base logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs outside the controller lock and may call back into the controller.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) { c.observer = fn }
}

// Snapshot is a consistent copy of the controller's state.
type Snapshot struct {
	ControllerID     string
	SinkID           string
	SessionID        string
	URL              string
	Status           model.Status
	Generation       uint64
	Seq              uint64
	State            model.PlaybackState
	Levels           []model.QualityLevel
	Warning          *model.Warning
	Error            *model.SessionError
	StartedAt        time.Time
	RecoveryAttempts int
}

type session struct {
	id        string
	url       string
	status    model.Status
	state     model.PlaybackState
	catalog   *catalog.Catalog
	warning   *model.Warning
	err       *model.SessionError
	startedAt time.Time
}

// Controller drives at most one session at a time on one sink.
type Controller struct {
	id       string
	cfg      Config
	sink     ports.Sink
	engine   ports.Engine
	clock    ports.Clock
	recorder ports.Recorder
	registry *Registry
	logger   zerolog.Logger
	observer func(Snapshot)
	tasks    taskGroup

	mu           sync.Mutex
	closed       bool
	dirty        bool
	seq          uint64
	generation   uint64
	boundGen     uint64
	sess         *session
	handle       ports.Handle
	cancelEngine func()
	cancelSink   func()
	// Scheduled recovery actions by id, one timer per budgeted attempt.
	pending      map[uint64]ports.Timer
	nextRecovery uint64
	budget       *recovery.Budget
}

// New claims sink and returns an idle controller.
func New(sink ports.Sink, engine ports.Engine, cfg Config, opts ...Option) (*Controller, error) {
	if sink == nil || engine == nil {
		return nil, errors.New("controller: sink and engine are required")
	}
	if len(cfg.ManifestExtensions) == 0 {
		cfg.ManifestExtensions = model.DefaultManifestExtensions
	}
	if cfg.RecorderTimeout <= 0 {
		cfg.RecorderTimeout = defaultRecorderTimeout
	}
	c := &Controller{
		id:     uuid.NewString(),
		cfg:    cfg,
		sink:   sink,
		engine: engine,
		clock:  ports.SystemClock{},
		logger: xlog.WithComponent("playback.controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	c.budget = recovery.NewBudget(cfg.MaxAttempts, cfg.BaseDelay)
	c.logger = c.logger.With().
		Str(xlog.FieldSinkID, sink.ID()).
		Str("controller_id", c.id).
		Logger()

	if err := c.registry.Claim(sink.ID(), c.id); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the controller id.
func (c *Controller) ID() string { return c.id }

// SinkID returns the id of the owned sink.
func (c *Controller) SinkID() string { return c.sink.ID() }

// LoadStream validates url and starts a fresh session on it, superseding any
// previous session. Engine failures surface asynchronously through the
// session status; only validation fails synchronously.
func (c *Controller) LoadStream(rawURL string) error {
	url, err := model.ValidateSourceURL(rawURL, c.cfg.ManifestExtensions)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return model.ErrClosed
	}

	if c.sess != nil && c.sess.status != model.StatusDestroyed {
		c.logger.Info().Str(xlog.FieldSessionID, c.sess.id).Msg("superseding session")
		c.destroyLocked()
	}

	now := c.clock.Now()
	c.sess = &session{
		id:        uuid.NewString(),
		url:       url,
		status:    model.StatusIdle,
		state:     model.NewPlaybackState(),
		catalog:   catalog.New(),
		startedAt: now,
	}
	c.budget.Reset()
	c.dirty = true
	c.fireLocked(lifecycle.EvLoadRequested)

	c.logger.Info().
		Str(xlog.FieldSessionID, c.sess.id).
		Str(xlog.FieldURL, url).
		Msg("loading stream")

	if err := c.attachLocked(); err != nil {
		if errors.Is(err, model.ErrHandleLeak) {
			return err
		}
		c.failLocked(model.ErrorSignal{Fatal: true, Category: model.CategoryOther, Details: err.Error()})
	}

	c.recordStartLocked(ports.SessionStart{SessionID: c.sess.id, URL: url, At: now})
	return nil
}

// Destroy tears down the current session. It is idempotent.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.unlock()
	if c.sess == nil || c.sess.status == model.StatusDestroyed {
		return
	}
	c.destroyLocked()
}

// Retry re-attaches the engine to the same URL after a fatal error.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return model.ErrClosed
	}
	if c.sess == nil {
		return model.ErrNoSession
	}
	if c.sess.status != model.StatusErrored {
		return fmt.Errorf("%w: status %s", model.ErrNotErrored, c.sess.status)
	}
	if _, ok := c.fireLocked(lifecycle.EvRetryRequested); !ok {
		return fmt.Errorf("%w: status %s", model.ErrNotErrored, c.sess.status)
	}
	c.teardownLocked()

	c.sess.err = nil
	c.sess.warning = nil
	c.sess.state = model.NewPlaybackState()
	c.sess.catalog.Replace(nil)
	c.budget.Reset()

	c.logger.Info().Str(xlog.FieldSessionID, c.sess.id).Msg("retrying stream")
	if err := c.attachLocked(); err != nil {
		if errors.Is(err, model.ErrHandleLeak) {
			return err
		}
		c.failLocked(model.ErrorSignal{Fatal: true, Category: model.CategoryOther, Details: err.Error()})
	}
	return nil
}

// SetQuality selects a level from the catalog or automatic selection.
// Invalid selections fail with ErrInvalidSelection and change nothing.
func (c *Controller) SetQuality(sel model.QualitySelection) error {
	c.mu.Lock()
	defer c.unlock()
	if c.sess == nil {
		if sel.IsAuto() {
			return model.ErrNoSession
		}
		return fmt.Errorf("%w: no catalog", model.ErrInvalidSelection)
	}
	if err := c.sess.catalog.Select(sel); err != nil {
		return err
	}
	if c.handle == nil {
		return fmt.Errorf("%w: status %s", model.ErrNoSession, c.sess.status)
	}
	if err := c.handle.SetQualityLevel(sel.EngineValue()); err != nil {
		return fmt.Errorf("set quality level: %w", err)
	}
	c.sess.state.SelectedQuality = sel
	c.dirty = true
	c.logger.Info().
		Str(xlog.FieldSessionID, c.sess.id).
		Str(xlog.FieldLevel, sel.String()).
		Msg("quality selected")
	return nil
}

// TogglePlay pauses a playing sink or resumes a paused one.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireHandleLocked(); err != nil {
		return err
	}
	if c.sess.state.IsPlaying {
		c.sink.Pause()
		return nil
	}
	if err := c.sink.Play(); err != nil {
		c.warnLocked(model.WarnAutoplay, fmt.Sprintf("play request rejected: %v", err))
	}
	return nil
}

// SetMuted mutes or unmutes the sink.
func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireHandleLocked(); err != nil {
		return err
	}
	c.sink.SetMuted(muted)
	c.sess.state.Muted = muted
	c.dirty = true
	return nil
}

// SetVolume sets the volume, clamped to [0,1]. A positive volume unmutes.
func (c *Controller) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireHandleLocked(); err != nil {
		return err
	}
	if math.IsNaN(volume) {
		return fmt.Errorf("%w: volume %v", model.ErrInvalidControl, volume)
	}
	volume = math.Max(0, math.Min(1, volume))
	c.sink.SetVolume(volume)
	c.sess.state.Volume = volume
	if volume > 0 && c.sess.state.Muted {
		c.sink.SetMuted(false)
		c.sess.state.Muted = false
	}
	c.dirty = true
	return nil
}

// SeekFraction seeks to fraction × duration. The duration must be known.
func (c *Controller) SeekFraction(fraction float64) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.requireHandleLocked(); err != nil {
		return err
	}
	if math.IsNaN(fraction) {
		return fmt.Errorf("%w: seek fraction %v", model.ErrInvalidControl, fraction)
	}
	if !c.sess.state.DurationKnown() {
		return model.ErrSeekUnavailable
	}
	fraction = math.Max(0, math.Min(1, fraction))
	target := fraction * c.sess.state.Duration
	c.sink.Seek(target)
	c.sess.state.CurrentTime = target
	c.dirty = true
	return nil
}

// SetFullscreen records the presentation mode.
func (c *Controller) SetFullscreen(on bool) error {
	c.mu.Lock()
	defer c.unlock()
	if c.sess == nil || c.sess.status == model.StatusDestroyed {
		return model.ErrNoSession
	}
	c.sess.state.Fullscreen = on
	c.dirty = true
	return nil
}

// State returns a copy of the playback state.
func (c *Controller) State() model.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return model.NewPlaybackState()
	}
	return c.sess.state
}

// Snapshot returns a consistent copy of everything callers may render.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close destroys the session, releases the sink and waits for background
// recorder calls to finish.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.sess != nil && c.sess.status != model.StatusDestroyed {
		c.destroyLocked()
	}
	c.closed = true
	c.registry.Release(c.sink.ID(), c.id)
	c.unlock()

	return c.tasks.CloseAndWait(ctx)
}

func (c *Controller) requireHandleLocked() error {
	if c.closed {
		return model.ErrClosed
	}
	if c.sess == nil || c.handle == nil {
		return model.ErrNoSession
	}
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		ControllerID:     c.id,
		SinkID:           c.sink.ID(),
		Status:           model.StatusIdle,
		Generation:       c.generation,
		Seq:              c.seq,
		State:            model.NewPlaybackState(),
		RecoveryAttempts: c.budget.Attempts(),
	}
	if c.sess == nil {
		return snap
	}
	snap.SessionID = c.sess.id
	snap.URL = c.sess.url
	snap.Status = c.sess.status
	snap.State = c.sess.state
	snap.Levels = c.sess.catalog.Snapshot().Levels
	snap.StartedAt = c.sess.startedAt
	if c.sess.warning != nil {
		w := *c.sess.warning
		snap.Warning = &w
	}
	if c.sess.err != nil {
		e := *c.sess.err
		snap.Error = &e
	}
	return snap
}

// unlock releases the mutex and publishes a snapshot if anything changed.
func (c *Controller) unlock() {
	var snap *Snapshot
	if c.dirty {
		c.seq++
		if c.observer != nil {
			s := c.snapshotLocked()
			snap = &s
		}
		c.dirty = false
	}
	c.mu.Unlock()
	if snap != nil {
		c.observer(*snap)
	}
}

func (c *Controller) fireLocked(ev lifecycle.EventKind) (lifecycle.Transition, bool) {
	from := c.sess.status
	tr, err := lifecycle.Next(from, ev)
	if err != nil {
		c.logger.Debug().Err(err).
			Str(xlog.FieldSessionID, c.sess.id).
			Str(xlog.FieldEvent, ev.String()).
			Msg("event ignored")
		return tr, false
	}
	c.sess.status = tr.To
	c.dirty = true
	metrics.RecordTransition(string(from), string(tr.To), ev.String())
	if from != tr.To {
		c.logger.Info().
			Str(xlog.FieldSessionID, c.sess.id).
			Str(xlog.FieldOldState, string(from)).
			Str(xlog.FieldNewState, string(tr.To)).
			Str(xlog.FieldEvent, ev.String()).
			Msg("session transition")
	}
	return tr, true
}

func (c *Controller) attachLocked() error {
	if c.handle != nil {
		c.logger.Error().Uint64(xlog.FieldGeneration, c.boundGen).Msg("attach requested while a handle is live")
		return fmt.Errorf("%w: generation %d", model.ErrHandleLeak, c.boundGen)
	}
	c.generation++
	gen := c.generation
	if err := c.registry.Bind(c.sink.ID(), c.id, gen); err != nil {
		return err
	}
	h, err := c.engine.Attach(c.sink)
	if err != nil {
		c.registry.Unbind(c.sink.ID(), c.id, gen)
		return fmt.Errorf("attach engine: %w", err)
	}
	c.handle = h
	c.boundGen = gen
	c.cancelEngine = h.Subscribe(func(ev ports.EngineEvent) { c.onEngineEvent(gen, ev) })
	c.cancelSink = c.sink.Subscribe(func(ev ports.SinkEvent) { c.onSinkEvent(gen, ev) })
	metrics.SessionsActive.Inc()
	c.logger.Debug().
		Str(xlog.FieldSessionID, c.sess.id).
		Uint64(xlog.FieldGeneration, gen).
		Msg("engine attached")
	return nil
}

// teardownLocked invalidates the current generation first, then releases the
// engine handle and the sink. Safe to call without a live handle.
func (c *Controller) teardownLocked() {
	c.generation++
	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}
	if c.handle == nil {
		return
	}
	if c.cancelEngine != nil {
		c.cancelEngine()
		c.cancelEngine = nil
	}
	if c.cancelSink != nil {
		c.cancelSink()
		c.cancelSink = nil
	}
	if err := c.handle.Detach(); err != nil {
		c.logger.Warn().Err(err).Uint64(xlog.FieldGeneration, c.boundGen).Msg("engine detach failed")
	}
	c.handle = nil
	c.sink.Reset()
	c.registry.Unbind(c.sink.ID(), c.id, c.boundGen)
	metrics.SessionsActive.Dec()
	c.dirty = true
}

func (c *Controller) destroyLocked() {
	c.fireLocked(lifecycle.EvDestroyRequested)
	c.teardownLocked()
	c.sess.state = model.NewPlaybackState()
	c.sess.catalog.Replace(nil)
	c.dirty = true
}

func (c *Controller) failLocked(sig model.ErrorSignal) {
	if _, ok := c.fireLocked(lifecycle.EvFatalError); !ok {
		return
	}
	c.teardownLocked()
	msg := sig.Details
	if msg == "" {
		msg = "unrecoverable " + string(sig.Category) + " error"
	}
	c.sess.err = &model.SessionError{
		Category:  sig.Category,
		Message:   msg,
		Retryable: true,
		At:        c.clock.Now(),
	}
	c.sess.state.IsPlaying = false
	c.logger.Error().
		Str(xlog.FieldSessionID, c.sess.id).
		Str(xlog.FieldCategory, string(sig.Category)).
		Str("details", msg).
		Msg("session failed")
}

func (c *Controller) warnLocked(kind model.WarningKind, msg string) {
	c.sess.warning = &model.Warning{Kind: kind, Message: msg, At: c.clock.Now()}
	c.dirty = true
	metrics.IncWarning(string(kind))
	c.logger.Warn().
		Str(xlog.FieldSessionID, c.sess.id).
		Str("kind", string(kind)).
		Msg(msg)
}

func (c *Controller) stale(gen uint64) bool {
	return c.closed || c.sess == nil || gen != c.generation
}

func (c *Controller) onEngineEvent(gen uint64, ev ports.EngineEvent) {
	c.mu.Lock()
	defer c.unlock()
	if c.stale(gen) {
		metrics.IncStaleEvent("engine")
		c.logger.Debug().Uint64(xlog.FieldGeneration, gen).Str(xlog.FieldEvent, ev.Kind.String()).Msg("stale engine event dropped")
		return
	}

	switch ev.Kind {
	case ports.EngineMediaAttached:
		if _, ok := c.fireLocked(lifecycle.EvEngineAttached); !ok {
			return
		}
		if err := c.handle.LoadSource(c.sess.url); err != nil {
			c.failLocked(model.ErrorSignal{Fatal: true, Category: model.CategoryOther, Details: err.Error()})
		}
	case ports.EngineManifestParsed:
		c.onManifestParsedLocked(ev.Levels)
	case ports.EngineError:
		c.onEngineErrorLocked(gen, ev.Error)
	}
}

func (c *Controller) onManifestParsedLocked(levels []model.QualityLevel) {
	tr, ok := c.fireLocked(lifecycle.EvManifestParsed)
	if !ok {
		return
	}
	snap := c.sess.catalog.Replace(levels)
	c.budget.Reset()
	if id, explicit := c.sess.state.SelectedQuality.LevelID(); explicit {
		if _, found := snap.Lookup(id); !found {
			c.sess.state.SelectedQuality = model.AutoQuality
		}
	}
	c.logger.Info().
		Str(xlog.FieldSessionID, c.sess.id).
		Int(xlog.FieldLevels, snap.Len()).
		Msg("manifest parsed")
	if tr.From == model.StatusAttaching {
		c.autoplayLocked()
	}
}

func (c *Controller) autoplayLocked() {
	err := c.sink.Play()
	if err == nil {
		return
	}
	if errors.Is(err, ports.ErrAutoplayBlocked) && c.cfg.AutoplayMutedFallback {
		c.sink.SetMuted(true)
		c.sess.state.Muted = true
		c.dirty = true
		if err = c.sink.Play(); err == nil {
			c.logger.Info().Str(xlog.FieldSessionID, c.sess.id).Msg("autoplay started muted")
			return
		}
	}
	c.warnLocked(model.WarnAutoplay, fmt.Sprintf("autoplay failed: %v", err))
}

func (c *Controller) onEngineErrorLocked(gen uint64, sig model.ErrorSignal) {
	action := recovery.Decide(sig)
	metrics.IncRecoveryAction(action.String(), string(sig.Category))

	switch action {
	case model.ActionIgnore:
		c.warnLocked(model.WarnEngine, fmt.Sprintf("%s error: %s", sig.Category, sig.Details))
		return
	case model.ActionRetryLoad, model.ActionRecoverMediaPipeline:
		attempt, delay, ok := c.budget.Next()
		if !ok {
			c.logger.Warn().
				Str(xlog.FieldSessionID, c.sess.id).
				Int(xlog.FieldAttempt, attempt).
				Msg("recovery budget exhausted")
			sig.Details = fmt.Sprintf("%s (gave up after %d recovery attempts)", detailsOr(sig), attempt)
			c.failLocked(sig)
			return
		}
		if _, ok := c.fireLocked(lifecycle.EvRecoverableError); !ok {
			return
		}
		c.logger.Info().
			Str(xlog.FieldSessionID, c.sess.id).
			Str(xlog.FieldAction, action.String()).
			Str(xlog.FieldCategory, string(sig.Category)).
			Int(xlog.FieldAttempt, attempt).
			Dur("delay", delay).
			Msg("scheduling recovery")
		if c.pending == nil {
			c.pending = make(map[uint64]ports.Timer)
		}
		c.nextRecovery++
		id := c.nextRecovery
		c.pending[id] = c.clock.AfterFunc(delay, func() { c.runRecovery(gen, id, action) })
	default:
		c.failLocked(sig)
	}
}

func detailsOr(sig model.ErrorSignal) string {
	if sig.Details != "" {
		return sig.Details
	}
	return string(sig.Category) + " error"
}

func (c *Controller) runRecovery(gen, id uint64, action model.Action) {
	c.mu.Lock()
	defer c.unlock()
	if c.stale(gen) || c.handle == nil {
		metrics.IncStaleEvent("recovery")
		return
	}
	delete(c.pending, id)

	var err error
	switch action {
	case model.ActionRetryLoad:
		err = c.handle.StartLoad()
	case model.ActionRecoverMediaPipeline:
		err = c.handle.RecoverMediaError()
	}
	if err != nil {
		c.failLocked(model.ErrorSignal{Fatal: true, Category: model.CategoryOther, Details: err.Error()})
	}
}

func (c *Controller) onSinkEvent(gen uint64, ev ports.SinkEvent) {
	c.mu.Lock()
	defer c.unlock()
	if c.stale(gen) {
		metrics.IncStaleEvent("sink")
		return
	}
	switch ev.Kind {
	case ports.SinkWaiting:
		c.fireLocked(lifecycle.EvBufferStarved)
	case ports.SinkPlaying:
		c.fireLocked(lifecycle.EvBufferRecovered)
		c.sess.state = bridge.Apply(c.sess.state, ports.SinkEvent{Kind: ports.SinkPlay})
		c.dirty = true
	default:
		c.sess.state = bridge.Apply(c.sess.state, ev)
		c.dirty = true
	}
}

func (c *Controller) recordStartLocked(start ports.SessionStart) {
	if c.recorder == nil {
		return
	}
	rec := c.recorder
	timeout := c.cfg.RecorderTimeout
	logger := c.logger
	ok := c.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ctx = xlog.ContextWithSessionID(ctx, start.SessionID)
		if err := rec.RecordSessionStart(ctx, start); err != nil {
			metrics.IncWarning(string(model.WarnRecorderFailed))
			logger.Warn().Err(err).
				Str(xlog.FieldSessionID, start.SessionID).
				Msg("recording session start failed")
		}
	})
	if !ok {
		c.logger.Debug().Str(xlog.FieldSessionID, start.SessionID).Msg("recorder skipped: controller closing")
	}
}
