// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires the runtime components and manages their lifecycle.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/hlswatch/internal/api"
	"github.com/ManuGH/hlswatch/internal/api/middleware"
	"github.com/ManuGH/hlswatch/internal/config"
	"github.com/ManuGH/hlswatch/internal/domain/playback/controller"
	playbackmanager "github.com/ManuGH/hlswatch/internal/domain/playback/manager"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
	"github.com/ManuGH/hlswatch/internal/engine/manifest"
	"github.com/ManuGH/hlswatch/internal/engine/virtualsink"
	"github.com/ManuGH/hlswatch/internal/health"
	"github.com/ManuGH/hlswatch/internal/log"
	platformnet "github.com/ManuGH/hlswatch/internal/platform/net"
	"github.com/ManuGH/hlswatch/internal/recent"
	"github.com/ManuGH/hlswatch/internal/telemetry"
	"github.com/ManuGH/hlswatch/internal/version"
)

const (
	serviceName      = "hlswatch"
	storePingTimeout = 2 * time.Second
)

// Options are the process-level inputs to Bootstrap.
type Options struct {
	// ConfigPath is the path to the YAML config file; empty means ENV only.
	ConfigPath string
	// Version defaults to version.Version.
	Version string
	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// Bootstrap loads configuration and builds the runtime. On error, any
// resource opened so far has been released.
func Bootstrap(ctx context.Context, opts Options) (app *App, err error) {
	if opts.Version == "" {
		opts.Version = version.Version
	}
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  out,
		Service: serviceName,
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(cfg); err != nil {
		return nil, err
	}

	var hooks []namedHook
	defer func() {
		if err == nil {
			return
		}
		for i := len(hooks) - 1; i >= 0; i-- {
			_ = hooks[i].hook(context.WithoutCancel(ctx))
		}
	}()

	tracing := ""
	provider, terr := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: opts.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if terr != nil {
		logger.Warn().Err(terr).Msg("Telemetry initialization failed, continuing without tracing")
	} else {
		hooks = append(hooks, namedHook{"telemetry", provider.Shutdown})
		if cfg.Telemetry.Enabled {
			tracing = serviceName
			logger.Info().
				Str("endpoint", cfg.Telemetry.Endpoint).
				Float64("sampling_rate", cfg.Telemetry.SamplingRate).
				Msg("Telemetry initialized")
		}
	}

	store, err := recent.NewStore(recent.StoreConfig{
		Backend:   cfg.Store.Backend,
		Dir:       cfg.Store.Path,
		RedisAddr: cfg.Store.RedisAddr,
		RedisKey:  cfg.Store.RedisKey,
		Capacity:  cfg.Store.Capacity,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open recent streams store: %w", err)
	}
	hooks = append(hooks, namedHook{"recent_store", func(context.Context) error { return store.Close() }})

	recentSvc := recent.NewService(store, recent.Config{
		DefaultLimit:       cfg.Recent.DefaultLimit,
		MaxLimit:           cfg.Recent.MaxLimit,
		ManifestExtensions: cfg.Player.ManifestExtensions,
	}, nil)
	if cfg.Store.SeedSamples {
		if err := seedIfEmpty(ctx, recentSvc); err != nil {
			return nil, err
		}
	}

	outbound, err := platformnet.NewGuard(platformnet.OutboundPolicy{
		BlockPrivate: cfg.Engine.BlockPrivateNetworks,
		AllowHosts:   cfg.Engine.AllowedHosts,
		AllowCIDRs:   cfg.Engine.AllowedCIDRs,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("outbound policy: %w", err)
	}
	engine := manifest.New(manifest.Config{
		FetchTimeout:     cfg.Engine.FetchTimeout,
		UserAgent:        cfg.Engine.UserAgent,
		Trace:            cfg.Telemetry.Enabled,
		Outbound:         outbound,
		BreakerThreshold: cfg.Engine.BreakerThreshold,
		BreakerReset:     cfg.Engine.BreakerResetTimeout,
	})
	hooks = append(hooks, namedHook{"engine", engine.Wait})

	hub := api.NewHub(nil)
	ctrlCfg := controller.DefaultConfig()
	ctrlCfg.MaxAttempts = cfg.Player.RetryAttempts
	ctrlCfg.BaseDelay = cfg.Player.RetryBaseDelay
	ctrlCfg.AutoplayMutedFallback = cfg.Player.AutoplayMutedFallback
	ctrlCfg.ManifestExtensions = cfg.Player.ManifestExtensions

	requireMuted := cfg.Player.RequireMutedAutoplay
	sessions := playbackmanager.New(engine,
		func(id string) (ports.Sink, error) {
			return virtualsink.New(virtualsink.Options{ID: id, RequireMutedAutoplay: requireMuted}), nil
		},
		playbackmanager.Config{Controller: ctrlCfg, MaxSessions: cfg.API.MaxSessions},
		playbackmanager.WithRecorder(recentSvc),
		playbackmanager.WithObserver(hub.Publish),
	)
	hooks = append(hooks, namedHook{"sessions", sessions.Close})

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewPingChecker("recent_store", storePingTimeout, recentSvc.Ping))
	hm.RegisterChecker(health.NewCapacityChecker("sessions", cfg.API.MaxSessions, sessions.Len))
	hm.RegisterChecker(health.NewUpstreamChecker("manifest_upstreams", engine.OpenBreakers))

	srv := api.NewServer(api.Deps{
		Recent:   recentSvc,
		Sessions: sessions,
		Hub:      hub,
		Health:   hm,
		Stack: middleware.StackConfig{
			EnableMetrics:  cfg.Metrics.Enabled,
			TracingService: tracing,
			EnableLogging:  true,
			RateLimitRPM:   cfg.API.RateLimitRPM,
		},
	})

	deps := Deps{Logger: logger, APIHandler: srv.Handler()}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := NewManager(DefaultServerConfig(cfg.API.ListenAddr, cfg.API.ShutdownTimeout), deps)
	if err != nil {
		return nil, err
	}

	// Sessions close before the engine they run on.
	for _, h := range hooks {
		mgr.RegisterShutdownHook(h.name, h.hook)
	}

	logger.Info().
		Str("event", "daemon.bootstrapped").
		Str("version", opts.Version).
		Str("store", cfg.Store.Backend).
		Int("max_sessions", cfg.API.MaxSessions).
		Msg("runtime assembled")

	return NewApp(logger, mgr, config.NewHolder(cfg, loader), hub), nil
}

// seedIfEmpty stores the sample streams on first start.
func seedIfEmpty(ctx context.Context, svc *recent.Service) error {
	existing, err := svc.Recent(ctx, 1)
	if err != nil {
		return fmt.Errorf("inspect recent streams: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	return svc.Seed(ctx)
}

// WaitForShutdown returns a context cancelled on interrupt or termination.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
