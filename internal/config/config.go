// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads daemon configuration with precedence ENV > file > defaults.
package config

import "time"

// Config is the complete daemon configuration.
type Config struct {
	Version string `yaml:"-"`

	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Recent    RecentConfig    `yaml:"recent"`
	Player    PlayerConfig    `yaml:"player"`
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type APIConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	RateLimitRPM    int           `yaml:"rateLimitRPM"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// MaxSessions bounds concurrently owned playback sessions.
	MaxSessions int `yaml:"maxSessions"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the recent-streams backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // memory|file|sqlite|redis
	Path        string `yaml:"path"`    // directory for file and sqlite
	RedisAddr   string `yaml:"redisAddr"`
	RedisKey    string `yaml:"redisKey"`
	Capacity    int    `yaml:"capacity"`
	SeedSamples bool   `yaml:"seedSamples"`
}

type RecentConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxLimit     int `yaml:"maxLimit"`
}

// PlayerConfig tunes the session controller.
type PlayerConfig struct {
	RetryAttempts         int           `yaml:"retryAttempts"`
	RetryBaseDelay        time.Duration `yaml:"retryBaseDelay"`
	AutoplayMutedFallback bool          `yaml:"autoplayMutedFallback"`
	ManifestExtensions    []string      `yaml:"manifestExtensions"`
	// RequireMutedAutoplay makes the virtual sink refuse unmuted autoplay.
	RequireMutedAutoplay bool `yaml:"requireMutedAutoplay"`
}

type EngineConfig struct {
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	UserAgent    string        `yaml:"userAgent"`

	// Consecutive manifest fetch failures per host before the breaker opens.
	BreakerThreshold    int           `yaml:"breakerThreshold"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`

	// BlockPrivateNetworks rejects manifest hosts resolving to loopback,
	// private or link-local addresses unless allowlisted.
	BlockPrivateNetworks bool     `yaml:"blockPrivateNetworks"`
	AllowedHosts         []string `yaml:"allowedHosts,omitempty"`
	AllowedCIDRs         []string `yaml:"allowedCIDRs,omitempty"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: APIConfig{
			ListenAddr:      ":8080",
			RateLimitRPM:    600,
			ShutdownTimeout: 15 * time.Second,
			MaxSessions:     16,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:     "memory",
			RedisKey:    "hlswatch:recent",
			Capacity:    500,
			SeedSamples: true,
		},
		Recent: RecentConfig{
			DefaultLimit: 3,
			MaxLimit:     50,
		},
		Player: PlayerConfig{
			RetryAttempts:         3,
			RetryBaseDelay:        time.Second,
			AutoplayMutedFallback: true,
			ManifestExtensions:    []string{".m3u8"},
		},
		Engine: EngineConfig{
			FetchTimeout:        10 * time.Second,
			UserAgent:           "hlswatch",
			BreakerThreshold:    5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
	}
}
