// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/ManuGH/zonewatch/internal/app/bootstrap"
	"github.com/ManuGH/zonewatch/internal/daemon"
	xglog "github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(parent context.Context, configPath string) error {
	ctx, stop := daemon.WaitForShutdown(parent)
	defer stop()

	c, err := bootstrap.WireServices(ctx, version.Version, configPath)
	if err != nil {
		logger := xglog.WithComponent("main")
		logger.Error().Err(err).Str("event", "startup.failed").Msg("zonewatchd failed to start")
		return err
	}
	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
