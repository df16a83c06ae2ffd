// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/validate"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server starts.
// Problems that prevent persisting zones fail; risky settings are logged.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str("event", "startup.checks_begin").Msg("running pre-flight startup checks")

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkStorePaths(logger, cfg); err != nil {
		return fmt.Errorf("store check failed: %w", err)
	}
	warnRiskySettings(logger, cfg)

	logger.Info().Str("event", "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkStorePaths(logger zerolog.Logger, cfg config.AppConfig) error {
	v := validate.New()
	v.WritableDirectory("data_dir", cfg.DataDir, false)

	switch cfg.Store.Backend {
	case config.BackendFile, config.BackendSQLite:
		v.WritableDirectory("store.path", filepath.Dir(cfg.Store.Path), false)
		if info, err := os.Stat(cfg.Store.Path); err == nil {
			if info.IsDir() {
				v.AddError("store.path", "path is a directory", cfg.Store.Path)
			} else if err := checkFileReadable(cfg.Store.Path); err != nil {
				v.AddError("store.path", fmt.Sprintf("not readable: %v", err), cfg.Store.Path)
			}
		}
	case config.BackendBadger:
		if cfg.Store.Path != "" {
			v.WritableDirectory("store.path", cfg.Store.Path, false)
		}
	}
	if err := v.Err(); err != nil {
		return err
	}
	logger.Info().
		Str("event", "startup.store_writable").
		Str("backend", cfg.Store.Backend).
		Str("path", cfg.Store.Path).
		Msg("store location is writable")
	return nil
}

func warnRiskySettings(logger zerolog.Logger, cfg config.AppConfig) {
	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn().
			Str("event", "startup.store_volatile").
			Msg("memory store selected; zones are lost on restart")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("event", "startup.data_dir_temp").
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; zones may be lost on reboot")
	}

	anon := auth.NewScopeSet(cfg.Auth.AnonymousScopes)
	if anon.Has(auth.Scope(cfg.Auth.AdminScope)) {
		logger.Warn().
			Str("event", "startup.anonymous_admin").
			Msg("anonymous callers can change the zone configuration")
	}
	if len(cfg.Auth.Tokens) == 0 && cfg.Auth.ReadScope != "" && !anon.Has(auth.Scope(cfg.Auth.ReadScope)) {
		logger.Warn().
			Str("event", "startup.no_readers").
			Msg("no API tokens and no anonymous read scope; every zone read will be denied")
	}
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return err
	}
	return f.Close()
}
