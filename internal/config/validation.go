// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/validate"
)

// Validate checks cfg and returns a *validate.ValidationError listing every
// invalid field.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("data_dir", cfg.DataDir)
	v.OneOf("log_level", cfg.LogLevel, validate.LogLevels)

	v.ListenAddr("server.listen", cfg.Server.Listen)
	v.PositiveDuration("server.read_timeout", cfg.Server.ReadTimeout)
	v.PositiveDuration("server.write_timeout", cfg.Server.WriteTimeout)
	v.PositiveDuration("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.NonNegative("server.max_header_bytes", cfg.Server.MaxHeaderBytes)

	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listen", cfg.Metrics.Listen)
		if cfg.Metrics.Listen == cfg.Server.Listen {
			v.AddError("metrics.listen", "must differ from server.listen", cfg.Metrics.Listen)
		}
	}

	validateStore(v, cfg.Store)
	validateAuth(v, cfg.Auth)

	if cfg.Health.ComponentTimeout < 0 {
		v.AddError("health.component_timeout", "cannot be negative", cfg.Health.ComponentTimeout)
	}

	seenNodes := map[string]bool{}
	for i, n := range cfg.Inventory {
		field := fmt.Sprintf("inventory[%d]", i)
		v.NotEmpty(field+".name", n.Name)
		if seenNodes[n.Name] {
			v.AddError(field+".name", "duplicate node name", n.Name)
		}
		seenNodes[n.Name] = true
		v.NonNegative(field+".executors", n.Executors)
	}

	seenPlugins := map[string]bool{}
	for i, p := range cfg.Plugins.Installed {
		field := fmt.Sprintf("plugins.installed[%d].name", i)
		v.NotEmpty(field, p.Name)
		if seenPlugins[p.Name] {
			v.AddError(field, "duplicate plugin name", p.Name)
		}
		seenPlugins[p.Name] = true
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.protocol", cfg.Telemetry.Protocol, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
			v.AddError("telemetry.sample_rate", "must be between 0 and 1", cfg.Telemetry.SampleRate)
		}
	}

	return v.Err()
}

func validateStore(v *validate.Validator, s StoreConfig) {
	v.OneOf("store.backend", s.Backend, Backends)
	switch s.Backend {
	case BackendFile, BackendSQLite:
		v.NotEmpty("store.path", s.Path)
	case BackendRedis:
		v.NotEmpty("store.redis_addr", s.RedisAddr)
		v.NotEmpty("store.redis_key", s.RedisKey)
		v.NonNegative("store.redis_db", s.RedisDB)
	case BackendBadger:
		v.Range("store.badger_history", s.BadgerHistory, 0, 1000)
	}
	if s.Backend == BackendSQLite {
		v.NonNegative("store.sqlite_max_conns", s.SQLiteMaxConns)
	}
}

func validateAuth(v *validate.Validator, a AuthConfig) {
	checkScopes := func(field string, scopes []string) {
		for _, s := range scopes {
			if _, ok := auth.ParseScope(s); !ok {
				v.AddError(field, fmt.Sprintf("unknown scope %q", s), s)
			}
		}
	}

	seen := map[string]bool{}
	for i, t := range a.Tokens {
		field := fmt.Sprintf("auth.tokens[%d]", i)
		if strings.TrimSpace(t.Token) == "" {
			v.AddError(field+".token", "value cannot be empty", "")
		}
		if seen[t.Token] {
			v.AddError(field+".token", "duplicate token", t.String())
		}
		seen[t.Token] = true
		checkScopes(field+".scopes", t.Scopes)
	}
	checkScopes("auth.anonymous_scopes", a.AnonymousScopes)

	if a.ReadScope != "" {
		checkScopes("auth.read_scope", []string{a.ReadScope})
	}
	if _, ok := auth.ParseScope(a.AdminScope); !ok {
		v.AddError("auth.admin_scope", "must name a known scope", a.AdminScope)
	}
	v.NonNegative("auth.admin_rate_limit", a.AdminRateLimit)
}
