// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every environment key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path is the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string { return l.configPath }

// Load applies defaults, then the file, then ENV, then validates.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if cfg.Store.Path != "" {
		if abs, err := filepath.Abs(cfg.Store.Path); err == nil {
			cfg.Store.Path = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path on top of cfg. Unknown fields are rejected.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.API.ListenAddr = ParseString(l.key("LISTEN"), cfg.API.ListenAddr)
	cfg.API.RateLimitRPM = ParseInt(l.key("API_RATE_LIMIT_RPM"), cfg.API.RateLimitRPM)
	cfg.API.ShutdownTimeout = ParseDuration(l.key("SHUTDOWN_TIMEOUT"), cfg.API.ShutdownTimeout)
	cfg.API.MaxSessions = ParseInt(l.key("MAX_SESSIONS"), cfg.API.MaxSessions)

	cfg.Metrics.Enabled = ParseBool(l.key("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = ParseString(l.key("METRICS_LISTEN"), cfg.Metrics.ListenAddr)

	cfg.Log.Level = ParseString(l.key("LOG_LEVEL"), cfg.Log.Level)

	cfg.Store.Backend = ParseString(l.key("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.Path = ParseString(l.key("STORE_PATH"), cfg.Store.Path)
	cfg.Store.RedisAddr = ParseString(l.key("STORE_REDIS_ADDR"), cfg.Store.RedisAddr)
	cfg.Store.RedisKey = ParseString(l.key("STORE_REDIS_KEY"), cfg.Store.RedisKey)
	cfg.Store.Capacity = ParseInt(l.key("STORE_CAPACITY"), cfg.Store.Capacity)
	cfg.Store.SeedSamples = ParseBool(l.key("STORE_SEED_SAMPLES"), cfg.Store.SeedSamples)

	cfg.Recent.DefaultLimit = ParseInt(l.key("RECENT_DEFAULT_LIMIT"), cfg.Recent.DefaultLimit)
	cfg.Recent.MaxLimit = ParseInt(l.key("RECENT_MAX_LIMIT"), cfg.Recent.MaxLimit)

	cfg.Player.RetryAttempts = ParseInt(l.key("PLAYER_RETRY_ATTEMPTS"), cfg.Player.RetryAttempts)
	cfg.Player.RetryBaseDelay = ParseDuration(l.key("PLAYER_RETRY_BASE_DELAY"), cfg.Player.RetryBaseDelay)
	cfg.Player.AutoplayMutedFallback = ParseBool(l.key("PLAYER_AUTOPLAY_MUTED_FALLBACK"), cfg.Player.AutoplayMutedFallback)
	cfg.Player.ManifestExtensions = ParseList(l.key("PLAYER_MANIFEST_EXTENSIONS"), cfg.Player.ManifestExtensions)
	cfg.Player.RequireMutedAutoplay = ParseBool(l.key("PLAYER_REQUIRE_MUTED_AUTOPLAY"), cfg.Player.RequireMutedAutoplay)

	cfg.Engine.FetchTimeout = ParseDuration(l.key("ENGINE_FETCH_TIMEOUT"), cfg.Engine.FetchTimeout)
	cfg.Engine.UserAgent = ParseString(l.key("ENGINE_USER_AGENT"), cfg.Engine.UserAgent)
	cfg.Engine.BreakerThreshold = ParseInt(l.key("ENGINE_BREAKER_THRESHOLD"), cfg.Engine.BreakerThreshold)
	cfg.Engine.BreakerResetTimeout = ParseDuration(l.key("ENGINE_BREAKER_RESET"), cfg.Engine.BreakerResetTimeout)
	cfg.Engine.BlockPrivateNetworks = ParseBool(l.key("ENGINE_BLOCK_PRIVATE_NETWORKS"), cfg.Engine.BlockPrivateNetworks)
	cfg.Engine.AllowedHosts = ParseList(l.key("ENGINE_ALLOWED_HOSTS"), cfg.Engine.AllowedHosts)
	cfg.Engine.AllowedCIDRs = ParseList(l.key("ENGINE_ALLOWED_CIDRS"), cfg.Engine.AllowedCIDRs)

	cfg.Telemetry.Enabled = ParseBool(l.key("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(l.key("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(l.key("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.key("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString(l.key("TELEMETRY_ENVIRONMENT"), cfg.Telemetry.Environment)
}
