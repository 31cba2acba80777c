// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: shouting\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "info", h.Get().Log.Level)
}

func TestHolderWatchAppliesLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := writeConfig(t, "log:\n  level: info\n")
	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	h.debounce = 10 * time.Millisecond
	updates := make(chan Config, 4)
	h.RegisterListener(updates)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.Watch(ctx))
	defer func() {
		cancel()
		h.Wait()
	}()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	select {
	case cfg := <-updates:
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload notification")
	}
	assert.Equal(t, "debug", h.Get().Log.Level)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestHolderWatchWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", "dev"))
	require.NoError(t, h.Watch(context.Background()))
	h.Wait()
}
