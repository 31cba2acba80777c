// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manifest is a headless streaming engine. It fetches and parses HLS
// manifests over HTTP and reports the results as engine events, without
// decoding any media.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	xlog "github.com/ManuGH/hlswatch/internal/log"
	"github.com/ManuGH/hlswatch/internal/platform/dispatch"
	"github.com/ManuGH/hlswatch/internal/platform/httpx"
	platformnet "github.com/ManuGH/hlswatch/internal/platform/net"
	"github.com/ManuGH/hlswatch/internal/resilience"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultUserAgent    = "hlswatch"
	maxManifestBytes    = 4 << 20
)

// SourceSink is implemented by sinks that simulate playback of the loaded
// media once its timeline is known.
type SourceSink interface {
	SetSource(durationSeconds float64, live bool)
}

// Config configures the engine.
type Config struct {
	FetchTimeout time.Duration
	UserAgent    string
	Trace        bool
	// Client overrides the HTTP client; tests inject httptest clients.
	Client *http.Client

	// Outbound rejects manifest hosts before any request is made. Nil allows all.
	Outbound *platformnet.Guard

	// Per-host circuit breaker; zero values use the resilience defaults.
	BreakerThreshold int
	BreakerReset     time.Duration
	Clock            resilience.Clock
}

// Engine creates headless handles. It is safe for concurrent use.
type Engine struct {
	client   *http.Client
	outbound *platformnet.Guard
	breakers *resilience.HostBreakers
	logger   zerolog.Logger

	wg sync.WaitGroup
}

// New builds an Engine.
func New(cfg Config) *Engine {
	client := cfg.Client
	if client == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		ua := cfg.UserAgent
		if ua == "" {
			ua = defaultUserAgent
		}
		client = httpx.NewClient(httpx.Options{Timeout: timeout, UserAgent: ua, Trace: cfg.Trace})
	}
	return &Engine{
		client:   client,
		outbound: cfg.Outbound,
		breakers: resilience.NewHostBreakers("manifest_fetch", cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithClock(cfg.Clock),
			resilience.WithIgnore(isCanceled),
		),
		logger: xlog.WithComponent("engine.manifest"),
	}
}

// OpenBreakers lists manifest hosts currently short-circuited.
func (e *Engine) OpenBreakers() []string { return e.breakers.Open() }

func isCanceled(err error) bool { return errors.Is(err, context.Canceled) }

// Attach binds a new handle to sink. The handle reports EngineMediaAttached
// as its first event.
func (e *Engine) Attach(sink ports.Sink) (ports.Handle, error) {
	if sink == nil {
		return nil, errors.New("manifest: nil sink")
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		engine: e,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		level:  -1,
		events: dispatch.New[ports.EngineEvent](),
		logger: e.logger.With().Str(xlog.FieldSinkID, sink.ID()).Logger(),
	}
	h.push(ports.EngineEvent{Kind: ports.EngineMediaAttached})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		h.events.Run()
	}()
	return h, nil
}

// Wait blocks until every goroutine started by detached handles has exited.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("manifest engine drain: %w", ctx.Err())
	}
}
