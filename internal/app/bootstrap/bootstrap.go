// SPDX-License-Identifier: MIT

// Package bootstrap is the composition root: it turns a loaded AppConfig
// into a runnable daemon.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ManuGH/zonewatch/internal/access"
	"github.com/ManuGH/zonewatch/internal/api"
	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/ManuGH/zonewatch/internal/daemon"
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/inventory"
	xglog "github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/metrics"
	"github.com/ManuGH/zonewatch/internal/persistence"
	"github.com/ManuGH/zonewatch/internal/persistence/redisstore"
	"github.com/ManuGH/zonewatch/internal/persistence/sqlite"
	"github.com/ManuGH/zonewatch/internal/plugins"
	"github.com/ManuGH/zonewatch/internal/telemetry"
	"github.com/ManuGH/zonewatch/internal/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Container is the production composition root output.
type Container struct {
	Config    config.AppConfig
	Logger    zerolog.Logger
	Store     *persistence.Handle
	Registry  *derived.Registry[string]
	Access    *access.Service[string]
	Tracker   *watch.Tracker
	Probes    *health.Probes
	Server    *api.Server
	Manager   daemon.Manager
	App       *daemon.App
	Telemetry *telemetry.Provider
}

// LoadConfig configures logging and loads the service configuration.
func LoadConfig(configPath, version string) (config.AppConfig, error) {
	xglog.Configure(xglog.Config{Level: "info", Service: "zonewatch", Version: version})

	cfg, err := config.NewLoader(configPath, version).Load()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "zonewatch", Version: version})
	logger := xglog.WithComponent("bootstrap")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", configPath).
		Msg("configuration loaded")

	if redacted, err := config.MarshalRedacted(cfg); err == nil {
		logger.Info().
			Str("event", "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", sha256.Sum256(redacted))).
			Msg("configuration snapshot fingerprint")
	}
	return cfg, nil
}

// WireServices loads the configuration and builds the daemon.
func WireServices(ctx context.Context, version, configPath string) (*Container, error) {
	cfg, err := LoadConfig(configPath, version)
	if err != nil {
		return nil, err
	}
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks failed: %w", err)
	}
	return Wire(ctx, cfg)
}

// Wire builds the dependency graph for cfg. The caller owns the returned
// container and must Run or Close it.
func Wire(ctx context.Context, cfg config.AppConfig) (c *Container, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}
	logger := xglog.WithComponent("bootstrap")
	c = &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
			c = nil
		}
	}()

	tp, err := telemetry.NewProvider(ctx, TelemetryConfig(cfg))
	if err != nil {
		return c, fmt.Errorf("initialize tracing: %w", err)
	}
	c.Telemetry = tp

	c.Store, err = persistence.Open(ctx, StoreConfig(cfg), xglog.WithComponent("store"))
	if err != nil {
		return c, fmt.Errorf("open zone store: %w", err)
	}

	factory, err := health.NewFactory(health.Deps{Inventory: Inventory(cfg), Catalog: Catalog(cfg)})
	if err != nil {
		return c, fmt.Errorf("register check kinds: %w", err)
	}

	observer := metrics.NewObserver()
	c.Registry, err = derived.NewRegistry(ctx, c.Store.Store, factory,
		derived.WithZoneOptions(ZoneOptions(cfg, observer)...),
		derived.WithLogger[string](xglog.WithComponent("registry")),
		derived.WithRegistryObserver[string](observer),
	)
	if err != nil {
		return c, fmt.Errorf("load zones: %w", err)
	}

	c.Access = access.NewService[string](c.Registry,
		access.WithReadScope[string](auth.Scope(cfg.Auth.ReadScope)),
		access.WithAdminScope[string](auth.Scope(cfg.Auth.AdminScope)),
	)
	c.Tracker = watch.NewTracker(c.Registry)
	c.Probes = Probes(cfg, c.Store, c.Tracker)

	tracing := ""
	if tp.Enabled() {
		tracing = cfg.Telemetry.ServiceName
	}
	c.Server = api.New(api.Deps{
		Access:         c.Access,
		Authenticator:  Authenticator(cfg),
		Probes:         c.Probes,
		AdminRateLimit: cfg.Auth.AdminRateLimit,
		TracingService: tracing,
		Version:        cfg.Version,
	})

	deps := daemon.Deps{Logger: xglog.WithComponent("daemon"), APIHandler: c.Server.Handler()}
	if cfg.Metrics.Enabled {
		deps.MetricsAddr = cfg.Metrics.Listen
		deps.MetricsHandler = metricsHandler()
	}
	c.Manager, err = daemon.NewManager(cfg.Server, deps)
	if err != nil {
		return c, fmt.Errorf("create daemon manager: %w", err)
	}
	c.Manager.RegisterShutdownHook("zone_store", func(context.Context) error { return c.Store.Close() })
	c.Manager.RegisterShutdownHook("telemetry", tp.Shutdown)

	reload := func(ctx context.Context) error { return c.Tracker.Reload(ctx, "signal") }
	c.App = daemon.NewApp(xglog.WithComponent("app"), c.Manager, reload, WatchTasks(cfg, c.Store, c.Tracker)...)

	logger.Info().
		Str("event", "startup").
		Str("version", cfg.Version).
		Str("host", hostname()).
		Str("addr", cfg.Server.Listen).
		Str("store", c.Store.Backend).
		Int("zones", c.Registry.Len()).
		Int("tokens", len(cfg.Auth.Tokens)).
		Msg("zonewatch wired")
	return c, nil
}

// Run serves until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	return c.App.Run(ctx)
}

// Close releases what Wire opened, for callers that never Run.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Telemetry != nil {
		errs = append(errs, c.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// StoreConfig maps the store settings onto a persistence backend.
func StoreConfig(cfg config.AppConfig) persistence.Config {
	return persistence.Config{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		SQLite: sqlite.Config{
			BusyTimeout:  cfg.Store.SQLiteBusyTimeout,
			MaxOpenConns: cfg.Store.SQLiteMaxConns,
		},
		Redis: redisstore.Config{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Key:      cfg.Store.RedisKey,
		},
		BadgerHistory: cfg.Store.BadgerHistory,
	}
}

// TelemetryConfig maps the tracing settings.
func TelemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SampleRate,
	}
}

// Inventory builds the static executor inventory.
func Inventory(cfg config.AppConfig) *inventory.Static {
	nodes := make([]inventory.Node, 0, len(cfg.Inventory))
	for _, n := range cfg.Inventory {
		nodes = append(nodes, inventory.Node{
			Name:      n.Name,
			Labels:    n.Labels,
			Executors: n.Executors,
			Online:    n.IsOnline(),
		})
	}
	return inventory.NewStatic(nodes...)
}

// Catalog builds the class catalog.
func Catalog(cfg config.AppConfig) *plugins.Static {
	installed := make([]*plugins.Plugin, 0, len(cfg.Plugins.Installed))
	for _, p := range cfg.Plugins.Installed {
		installed = append(installed, plugins.NewPlugin(p.Name, p.Version, p.Classes...))
	}
	return plugins.NewStatic(cfg.Plugins.Core, installed...)
}

// Authenticator builds the token authenticator.
func Authenticator(cfg config.AppConfig) *auth.Authenticator {
	tokens := make([]auth.TokenEntry, 0, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		tokens = append(tokens, auth.TokenEntry{Token: t.Token, User: t.User, Scopes: t.Scopes})
	}
	return auth.NewAuthenticator(tokens, cfg.Auth.AnonymousScopes)
}

// ZoneOptions are applied to every zone the registry builds.
func ZoneOptions(cfg config.AppConfig, observer derived.Observer) []derived.ZoneOption[string] {
	return []derived.ZoneOption[string]{
		derived.WithComponentTimeout[string](cfg.Health.ComponentTimeout),
		derived.WithFailureValue(health.FailureValue),
		derived.WithObserver[string](observer),
	}
}

// Probes registers the readiness checks of the process itself.
func Probes(cfg config.AppConfig, store *persistence.Handle, tracker *watch.Tracker) *health.Probes {
	p := health.NewProbes(cfg.Version)
	p.Register(health.NewStoreProber(store.Raw()))
	if path := store.Path(); path != "" {
		p.Register(health.NewFileProber("zones_file", path))
	}
	if cfg.Store.Watch {
		p.Register(health.NewReloadProber(tracker.LastReload))
	}
	return p
}

// WatchTasks returns the background tasks that reload the registry when
// the store changes outside this process.
func WatchTasks(cfg config.AppConfig, store *persistence.Handle, tracker *watch.Tracker) []daemon.Task {
	if !cfg.Store.Watch {
		return nil
	}
	var tasks []daemon.Task
	if path := store.Path(); path != "" {
		fw := watch.NewFileWatcher(path, tracker, watch.WithStaleCheck(store.Stale))
		tasks = append(tasks, daemon.Task{Name: "zones_file_watch", Run: fw.Run})
	}
	if feed, ok := store.Watcher(); ok {
		backend := store.Backend
		tasks = append(tasks, daemon.Task{Name: backend + "_feed", Run: func(ctx context.Context) error {
			return tracker.Follow(ctx, feed, backend)
		}})
	}
	return tasks
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintln(w, "zonewatch metrics: /metrics")
	})
	return mux
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
