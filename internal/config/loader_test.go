// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Recent.DefaultLimit)
	assert.Equal(t, 50, cfg.Recent.MaxLimit)
	assert.Equal(t, 3, cfg.Player.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Player.RetryBaseDelay)
	assert.True(t, cfg.Player.AutoplayMutedFallback)
	assert.Equal(t, []string{".m3u8"}, cfg.Player.ManifestExtensions)
	assert.Equal(t, 10*time.Second, cfg.Engine.FetchTimeout)
	assert.Equal(t, 5, cfg.Engine.BreakerThreshold)
	assert.False(t, cfg.Engine.BlockPrivateNetworks)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  listenAddr: "127.0.0.1:18080"
store:
  backend: sqlite
  path: ./data
player:
  retryBaseDelay: 250ms
  manifestExtensions: [".m3u8", ".m3u"]
recent:
  defaultLimit: 5
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:18080", cfg.API.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.True(t, filepath.IsAbs(cfg.Store.Path))
	assert.Equal(t, 250*time.Millisecond, cfg.Player.RetryBaseDelay)
	assert.Equal(t, []string{".m3u8", ".m3u"}, cfg.Player.ManifestExtensions)
	assert.Equal(t, 5, cfg.Recent.DefaultLimit)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Player.RetryAttempts)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\nrecent:\n  maxLimit: 20\n")
	t.Setenv("HLSWATCH_LOG_LEVEL", "warn")
	t.Setenv("HLSWATCH_PLAYER_RETRY_ATTEMPTS", "5")
	t.Setenv("HLSWATCH_PLAYER_AUTOPLAY_MUTED_FALLBACK", "no")
	t.Setenv("HLSWATCH_PLAYER_MANIFEST_EXTENSIONS", ".m3u8, .m3u ,")
	t.Setenv("HLSWATCH_ENGINE_FETCH_TIMEOUT", "not-a-duration")
	t.Setenv("HLSWATCH_ENGINE_BLOCK_PRIVATE_NETWORKS", "true")
	t.Setenv("HLSWATCH_ENGINE_ALLOWED_HOSTS", "cdn.internal,media.lan")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Recent.MaxLimit)
	assert.Equal(t, 5, cfg.Player.RetryAttempts)
	assert.False(t, cfg.Player.AutoplayMutedFallback)
	assert.Equal(t, []string{".m3u8", ".m3u"}, cfg.Player.ManifestExtensions)
	assert.Equal(t, 10*time.Second, cfg.Engine.FetchTimeout, "invalid env values fall back")
	assert.True(t, cfg.Engine.BlockPrivateNetworks)
	assert.Equal(t, []string{"cdn.internal", "media.lan"}, cfg.Engine.AllowedHosts)
	assert.Contains(t, l.ConsumedEnvKeys, "HLSWATCH_LOG_LEVEL")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "api:\n  listenAddress: \":1\"\n")
	_, err := NewLoader(path, "dev").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.ErrorContains(t, err, "multiple documents")
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "dev").Load()
	require.ErrorContains(t, err, "only YAML supported")
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, ""), "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().API, cfg.API)
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: redis\n  redisAddr: \"\"\n")
	_, err := NewLoader(path, "dev").Load()
	require.ErrorContains(t, err, "store.redisAddr")
}
