// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task is a background loop owned by the App. It runs until ctx is
// cancelled; a returned error is logged and does not stop the servers.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle (watchers, reload wiring) and
// delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	tasks        []Task
	reload       func(ctx context.Context) error
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. reload, if set, runs on SIGHUP.
func NewApp(logger zerolog.Logger, manager Manager, reload func(ctx context.Context) error, tasks ...Task) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		tasks:        tasks,
		reload:       reload,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background tasks and blocks until ctx is cancelled
// or the servers fail.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, task := range a.tasks {
		g.Go(func() error {
			a.logger.Debug().Str("event", "task.started").Str("task", task.Name).Msg("background task started")
			if err := task.Run(gctx); err != nil && gctx.Err() == nil {
				a.logger.Error().
					Err(err).
					Str("event", "task.failed").
					Str("task", task.Name).
					Msg("background task stopped")
			}
			return nil
		})
	}

	if a.reload != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "zones.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading zones")
					if err := a.reload(gctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "zones.reload_failed").
							Msg("zone reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(gctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// WaitForShutdown returns a child of parent cancelled on SIGINT or SIGTERM.
func WaitForShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
