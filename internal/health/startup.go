// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/config"
	"github.com/ManuGH/hlswatch/internal/log"
)

// PerformStartupChecks validates the environment before the servers start.
func PerformStartupChecks(cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	switch cfg.Store.Backend {
	case "file", "sqlite":
		if err := checkDataDir(logger, cfg.Store.Path); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	case "memory":
		logger.Warn().Str("event", "startup.store_volatile").Msg("recent streams are kept in memory and lost on restart")
	}
	logger.Info().Str("event", "startup.checks_passed").Msg("startup checks passed")
	return nil
}

// checkDataDir creates path if missing and verifies it is writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	_ = os.Remove(probe)
	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}
