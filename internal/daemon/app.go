// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/hlswatch/internal/api"
	"github.com/ManuGH/hlswatch/internal/config"
)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring,
// session feed hub) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	hub          *api.Hub
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, hub *api.Hub) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		hub:          hub,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.hub != nil {
		g.Go(func() error {
			a.hub.Run(ctx)
			return nil
		})
	}

	if a.cfgHolder != nil {
		// Config watcher is best-effort: startup should not fail if watcher cannot be started.
		if err := a.cfgHolder.Watch(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Wait()

		applied := a.cfgHolder.Get()
		applyCh := make(chan config.Config, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case next := <-applyCh:
					if fields := restartRequired(applied, next); len(fields) > 0 {
						a.logger.Warn().
							Str("event", "config.restart_required").
							Strs("fields", fields).
							Msg("configuration change takes effect after restart")
					}
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// restartRequired lists the changed settings that only apply at startup.
// The log level is applied live by the config holder.
func restartRequired(old, next config.Config) []string {
	var fields []string
	if old.API != next.API {
		fields = append(fields, "api")
	}
	if old.Metrics != next.Metrics {
		fields = append(fields, "metrics")
	}
	if old.Store != next.Store {
		fields = append(fields, "store")
	}
	if old.Recent != next.Recent {
		fields = append(fields, "recent")
	}
	if !playerEqual(old.Player, next.Player) {
		fields = append(fields, "player")
	}
	if !engineEqual(old.Engine, next.Engine) {
		fields = append(fields, "engine")
	}
	if old.Telemetry != next.Telemetry {
		fields = append(fields, "telemetry")
	}
	return fields
}

func playerEqual(a, b config.PlayerConfig) bool {
	return a.RetryAttempts == b.RetryAttempts &&
		a.RetryBaseDelay == b.RetryBaseDelay &&
		a.AutoplayMutedFallback == b.AutoplayMutedFallback &&
		a.RequireMutedAutoplay == b.RequireMutedAutoplay &&
		slices.Equal(a.ManifestExtensions, b.ManifestExtensions)
}

func engineEqual(a, b config.EngineConfig) bool {
	return a.FetchTimeout == b.FetchTimeout &&
		a.UserAgent == b.UserAgent &&
		a.BreakerThreshold == b.BreakerThreshold &&
		a.BreakerResetTimeout == b.BreakerResetTimeout &&
		a.BlockPrivateNetworks == b.BlockPrivateNetworks &&
		slices.Equal(a.AllowedHosts, b.AllowedHosts) &&
		slices.Equal(a.AllowedCIDRs, b.AllowedCIDRs)
}
