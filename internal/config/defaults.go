// SPDX-License-Identifier: MIT

package config

import (
	"time"

	"github.com/ManuGH/zonewatch/internal/auth"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Backends lists the accepted store backends.
var Backends = []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendBadger}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		DataDir:  "/var/lib/zonewatch",
		LogLevel: "info",
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		Store: StoreConfig{
			Backend:           BackendFile,
			SQLiteBusyTimeout: 5 * time.Second,
			SQLiteMaxConns:    4,
			RedisKey:          "zonewatch:zones",
			BadgerHistory:     10,
			Watch:             true,
		},
		Auth: AuthConfig{
			ReadScope:      string(auth.ScopeHealthCheck),
			AdminScope:     string(auth.ScopeHealthAdmin),
			AdminRateLimit: 30,
		},
		Health: HealthConfig{
			ComponentTimeout: 10 * time.Second,
		},
		Inventory: []NodeConfig{{Name: "master", Executors: 2}},
		Telemetry: TelemetryConfig{
			ServiceName: "zonewatch",
			Protocol:    "grpc",
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
		},
	}
}
