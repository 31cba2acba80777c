// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/ManuGH/hlswatch/internal/validate"
)

var storeBackends = []string{"memory", "file", "sqlite", "redis"}

// Validate checks cross-field constraints; it does not touch the filesystem.
func Validate(cfg Config) error {
	v := validate.New()

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.Range("api.rateLimitRPM", cfg.API.RateLimitRPM, 0, 1_000_000)
	v.PositiveDuration("api.shutdownTimeout", cfg.API.ShutdownTimeout)
	v.Positive("api.maxSessions", cfg.API.MaxSessions)

	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	v.OneOf("log.level", strings.ToLower(cfg.Log.Level), validate.LogLevels)

	v.OneOf("store.backend", cfg.Store.Backend, storeBackends)
	switch cfg.Store.Backend {
	case "file", "sqlite":
		v.NotEmpty("store.path", cfg.Store.Path)
	case "redis":
		v.NotEmpty("store.redisAddr", cfg.Store.RedisAddr)
		v.NotEmpty("store.redisKey", cfg.Store.RedisKey)
	}
	v.Positive("store.capacity", cfg.Store.Capacity)

	v.Positive("recent.maxLimit", cfg.Recent.MaxLimit)
	v.Range("recent.defaultLimit", cfg.Recent.DefaultLimit, 1, max(cfg.Recent.MaxLimit, 1))

	v.Range("player.retryAttempts", cfg.Player.RetryAttempts, 0, 20)
	v.PositiveDuration("player.retryBaseDelay", cfg.Player.RetryBaseDelay)
	if len(cfg.Player.ManifestExtensions) == 0 {
		v.AddError("player.manifestExtensions", "at least one extension is required", cfg.Player.ManifestExtensions)
	}
	for i, ext := range cfg.Player.ManifestExtensions {
		if !strings.HasPrefix(ext, ".") {
			v.AddError(fmt.Sprintf("player.manifestExtensions[%d]", i), "extension must start with a dot", ext)
		}
	}

	v.PositiveDuration("engine.fetchTimeout", cfg.Engine.FetchTimeout)
	v.Range("engine.breakerThreshold", cfg.Engine.BreakerThreshold, 1, 100)
	v.PositiveDuration("engine.breakerResetTimeout", cfg.Engine.BreakerResetTimeout)
	for i, cidr := range cfg.Engine.AllowedCIDRs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			v.AddError(fmt.Sprintf("engine.allowedCIDRs[%d]", i), "invalid CIDR", cidr)
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
