// SPDX-License-Identifier: MIT

// Package daemon runs the zonewatch HTTP servers and the background tasks
// that keep the zone registry in sync with its store.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/rs/zerolog"
)

// ShutdownHook releases a resource when the manager stops. Hooks run in
// reverse registration order.
type ShutdownHook func(ctx context.Context) error

// Manager owns the API and metrics listeners.
type Manager interface {
	// Start binds every listener and serves until ctx is done.
	Start(ctx context.Context) error
	// Shutdown drains the servers, then runs the hooks.
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
	// Ready is closed once every listener is bound.
	Ready() <-chan struct{}
	// APIAddr is the bound API address, empty before Ready.
	APIAddr() string
}

// drainGrace bounds the shutdown that follows a server failure or a
// cancelled Start.
const drainGrace = 30 * time.Second

type listener struct {
	name string
	srv  *http.Server
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps
	logger    zerolog.Logger

	mu        sync.Mutex
	listeners []listener
	apiAddr   string
	hooks     []namedHook
	started   bool
	stopping  bool
	ready     chan struct{}
}

type namedHook struct {
	name string
	fn   ShutdownHook
}

// NewManager returns a Manager serving deps.APIHandler on serverCfg.Listen.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("daemon deps: %w", err)
	}
	return &manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "manager").Logger(),
		ready:     make(chan struct{}),
	}, nil
}

func (m *manager) Ready() <-chan struct{} { return m.ready }

func (m *manager) APIAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiAddr
}

// Start binds every listener, then serves until ctx is cancelled or a
// server fails. Either way the manager is shut down before Start returns.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil start context")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: manager started twice")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("event", "manager.starting").
		Str("listen", m.serverCfg.Listen).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("starting servers")

	failed := make(chan error, 2)

	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		metrics := &http.Server{
			Handler:           m.deps.MetricsHandler,
			ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		}
		if _, err := m.serve("metrics", m.deps.MetricsAddr, metrics, failed); err != nil {
			m.abortStart()
			return err
		}
	}

	api := &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
		MaxHeaderBytes:    m.serverCfg.MaxHeaderBytes,
	}
	addr, err := m.serve("api", m.serverCfg.Listen, api, failed)
	if err != nil {
		m.abortStart()
		return err
	}
	m.mu.Lock()
	m.apiAddr = addr
	m.mu.Unlock()
	close(m.ready)

	var cause error
	select {
	case cause = <-failed:
		m.logger.Error().Err(cause).Str("event", "manager.server_failed").Msg("server failed, shutting down")
	case <-ctx.Done():
		m.logger.Info().Str("event", "manager.shutdown_signal").Msg("shutdown requested")
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainGrace)
	defer cancel()
	if err := m.Shutdown(drainCtx); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// serve binds addr synchronously and serves srv in the background. A serve
// error after binding is reported on failed.
func (m *manager) serve(name, addr string, srv *http.Server, failed chan<- error) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s listener %s: %w", ErrServerStartFailed, name, addr, err)
	}
	bound := ln.Addr().String()

	m.mu.Lock()
	m.listeners = append(m.listeners, listener{name: name, srv: srv})
	m.mu.Unlock()

	m.logger.Info().
		Str("event", name+".server.listening").
		Str("addr", bound).
		Msg("listening")

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", name+".server.failed").
				Msg("server stopped unexpectedly")
			failed <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
	return bound, nil
}

// abortStart closes whatever was bound before a listener failed and runs the
// shutdown hooks so resources opened by the caller are released.
func (m *manager) abortStart() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(ctx)
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil shutdown context")
	}

	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	listeners := append([]listener(nil), m.listeners...)
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	m.logger.Info().Str("event", "manager.stopping").Msg("stopping servers")

	timeout := m.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error
	for _, l := range listeners {
		if err := l.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server: %w", l.name, err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		began := time.Now()
		err := h.fn(ctx)
		evt := m.logger.Debug()
		if err != nil {
			evt = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		evt.Str("event", "manager.hook_done").
			Str("hook", h.name).
			Bool("ok", err == nil).
			Dur("duration", time.Since(began)).
			Msg("shutdown hook finished")
	}

	if len(errs) > 0 {
		m.logger.Error().
			Str("event", "manager.stopped_with_errors").
			Int("error_count", len(errs)).
			Msg("stopped with errors")
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}
	m.logger.Info().Str("event", "manager.stopped").Msg("stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: hook})
	m.logger.Debug().Str("event", "manager.hook_registered").Str("hook", name).Msg("shutdown hook registered")
}
