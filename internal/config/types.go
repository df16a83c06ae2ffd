// SPDX-License-Identifier: MIT

// Package config loads the zonewatch service configuration: built-in
// defaults, then a strict YAML file, then ZONEWATCH_ environment variables.
package config

import (
	"time"
)

// AppConfig is the resolved service configuration.
type AppConfig struct {
	// Version is the binary version; never read from the file.
	Version string `yaml:"-"`

	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Health    HealthConfig    `yaml:"health"`
	Inventory []NodeConfig    `yaml:"inventory"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

// MetricsConfig configures the separate Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// StoreConfig selects where the zone document is persisted. An empty Path
// is derived from DataDir for the file, sqlite and badger backends.
type StoreConfig struct {
	Backend           string        `yaml:"backend"`
	Path              string        `yaml:"path"`
	SQLiteBusyTimeout time.Duration `yaml:"sqlite_busy_timeout"`
	SQLiteMaxConns    int           `yaml:"sqlite_max_conns"`
	RedisAddr         string        `yaml:"redis_addr"`
	RedisPassword     string        `yaml:"redis_password"`
	RedisDB           int           `yaml:"redis_db"`
	RedisKey          string        `yaml:"redis_key"`
	BadgerHistory     int           `yaml:"badger_history"`
	BadgerInMemory    bool          `yaml:"badger_in_memory"`
	// Watch reloads the zones when the store changes outside this process.
	Watch bool `yaml:"watch"`
}

// AuthConfig configures API tokens and the scopes each surface requires.
type AuthConfig struct {
	Tokens          []TokenConfig `yaml:"tokens"`
	AnonymousScopes []string      `yaml:"anonymous_scopes"`
	// ReadScope gates zone reads; empty lets every caller read.
	ReadScope  string `yaml:"read_scope"`
	AdminScope string `yaml:"admin_scope"`
	// AdminRateLimit is the number of admin requests allowed per minute and
	// client; 0 disables the limit.
	AdminRateLimit int `yaml:"admin_rate_limit"`
}

// TokenConfig is one API token.
type TokenConfig struct {
	Token  string   `yaml:"token"`
	User   string   `yaml:"user"`
	Scopes []string `yaml:"scopes"`
}

// String never prints the token.
func (t TokenConfig) String() string {
	return t.User + ":***"
}

// HealthConfig tunes zone evaluation.
type HealthConfig struct {
	// ComponentTimeout bounds each component derivation; 0 disables it.
	ComponentTimeout time.Duration `yaml:"component_timeout"`
}

// NodeConfig is one node of the static executor inventory.
type NodeConfig struct {
	Name      string   `yaml:"name"`
	Labels    []string `yaml:"labels"`
	Executors int      `yaml:"executors"`
	Online    *bool    `yaml:"online"` // defaults to true
}

// IsOnline resolves the Online default.
func (n NodeConfig) IsOnline() bool {
	return n.Online == nil || *n.Online
}

// PluginsConfig describes the classes the class-presence check can find.
type PluginsConfig struct {
	Core      []string       `yaml:"core"`
	Installed []PluginConfig `yaml:"installed"`
}

// PluginConfig is one installed plugin and the classes it provides.
type PluginConfig struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Classes []string `yaml:"classes"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Protocol    string  `yaml:"protocol"` // grpc or http
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// ZonesPath is the zone document file watched for edits; empty when the
// store is not file based.
func (c AppConfig) ZonesPath() string {
	if c.Store.Backend == BackendFile {
		return c.Store.Path
	}
	return ""
}
