// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startupConfig(t *testing.T, backend string) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Store.Backend = backend
	switch backend {
	case config.BackendFile:
		cfg.Store.Path = filepath.Join(dir, "zones", "zones.yaml")
	case config.BackendSQLite:
		cfg.Store.Path = filepath.Join(dir, "zones.db")
	case config.BackendBadger:
		cfg.Store.Path = filepath.Join(dir, "badger")
	}
	return cfg
}

func TestPerformStartupChecks(t *testing.T) {
	for _, backend := range config.Backends {
		t.Run(backend, func(t *testing.T) {
			cfg := startupConfig(t, backend)
			require.NoError(t, PerformStartupChecks(context.Background(), cfg))
			if backend == config.BackendFile {
				assert.DirExists(t, filepath.Dir(cfg.Store.Path))
			}
		})
	}
}

func TestPerformStartupChecksStorePathIsDirectory(t *testing.T) {
	cfg := startupConfig(t, config.BackendFile)
	require.NoError(t, os.MkdirAll(cfg.Store.Path, 0o750))
	err := PerformStartupChecks(context.Background(), cfg)
	assert.ErrorContains(t, err, "path is a directory")
}

func TestPerformStartupChecksDataDirIsFile(t *testing.T) {
	cfg := startupConfig(t, config.BackendMemory)
	cfg.DataDir = filepath.Join(cfg.DataDir, "file")
	require.NoError(t, os.WriteFile(cfg.DataDir, nil, 0o600))
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, PerformStartupChecks(ctx, startupConfig(t, config.BackendMemory)), context.Canceled)
}
