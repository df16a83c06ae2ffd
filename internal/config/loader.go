// SPDX-License-Identifier: MIT

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

// Loader resolves the configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every variable the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load builds the configuration: defaults, then the file (strict), then the
// environment, then derived values. The result is validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version
	resolve(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Unknown fields and trailing documents are
// rejected.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the operator chooses the config path
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
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) env(key string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString(l.env("DATA_DIR"), cfg.DataDir)
	cfg.LogLevel = ParseString(l.env("LOG_LEVEL"), cfg.LogLevel)

	cfg.Server.Listen = ParseString(l.env("LISTEN"), cfg.Server.Listen)
	cfg.Server.ReadTimeout = ParseDuration(l.env("READ_TIMEOUT"), cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = ParseDuration(l.env("WRITE_TIMEOUT"), cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = ParseDuration(l.env("SHUTDOWN_TIMEOUT"), cfg.Server.ShutdownTimeout)

	cfg.Metrics.Enabled = ParseBool(l.env("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.Listen = ParseString(l.env("METRICS_LISTEN"), cfg.Metrics.Listen)

	cfg.Store.Backend = ParseString(l.env("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.Path = ParseString(l.env("STORE_PATH"), cfg.Store.Path)
	cfg.Store.Watch = ParseBool(l.env("STORE_WATCH"), cfg.Store.Watch)
	cfg.Store.RedisAddr = ParseString(l.env("REDIS_ADDR"), cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = ParseString(l.env("REDIS_PASSWORD"), cfg.Store.RedisPassword)
	cfg.Store.RedisDB = ParseInt(l.env("REDIS_DB"), cfg.Store.RedisDB)
	cfg.Store.RedisKey = ParseString(l.env("REDIS_KEY"), cfg.Store.RedisKey)
	cfg.Store.BadgerHistory = ParseInt(l.env("BADGER_HISTORY"), cfg.Store.BadgerHistory)

	// A single token from the environment is added to the file's tokens.
	if token := ParseString(l.env("API_TOKEN"), ""); token != "" {
		cfg.Auth.Tokens = append(cfg.Auth.Tokens, TokenConfig{
			Token:  token,
			User:   ParseString(l.env("API_TOKEN_USER"), "env"),
			Scopes: ParseList(l.env("API_TOKEN_SCOPES"), nil),
		})
	}
	cfg.Auth.AnonymousScopes = ParseList(l.env("ANONYMOUS_SCOPES"), cfg.Auth.AnonymousScopes)
	cfg.Auth.ReadScope = ParseString(l.env("READ_SCOPE"), cfg.Auth.ReadScope)
	cfg.Auth.AdminScope = ParseString(l.env("ADMIN_SCOPE"), cfg.Auth.AdminScope)
	cfg.Auth.AdminRateLimit = ParseInt(l.env("ADMIN_RATE_LIMIT"), cfg.Auth.AdminRateLimit)

	cfg.Health.ComponentTimeout = ParseDuration(l.env("COMPONENT_TIMEOUT"), cfg.Health.ComponentTimeout)

	cfg.Telemetry.Enabled = ParseBool(l.env("TRACING_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Protocol = ParseString(l.env("OTLP_PROTOCOL"), cfg.Telemetry.Protocol)
	cfg.Telemetry.Endpoint = ParseString(l.env("OTLP_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SampleRate = ParseFloat(l.env("TRACING_SAMPLE_RATE"), cfg.Telemetry.SampleRate)
}

// resolve fills values derived from others.
func resolve(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil && cfg.DataDir != "" {
		cfg.DataDir = abs
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if cfg.Store.Path == "" && cfg.DataDir != "" {
		switch cfg.Store.Backend {
		case BackendFile:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "zones.yaml")
		case BackendSQLite:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "zones.db")
		case BackendBadger:
			if !cfg.Store.BadgerInMemory {
				cfg.Store.Path = filepath.Join(cfg.DataDir, "badger")
			}
		}
	}
	if cfg.Store.Backend == BackendBadger && cfg.Store.BadgerInMemory {
		cfg.Store.Path = ""
	}
}
