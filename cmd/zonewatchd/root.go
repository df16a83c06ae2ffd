// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/ManuGH/zonewatch/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "zonewatchd",
		Short: "zonewatch daemon: derived health pages for named zones",
		Long: "zonewatchd evaluates zones of health checks on request and serves the\n" +
			"combined result as json, xml and shell views.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newProbeCmd())
	root.AddCommand(newValidateCmd(&configPath))
	root.AddCommand(newKindsCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	return root
}
