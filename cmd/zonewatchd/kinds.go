// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/inventory"
	"github.com/ManuGH/zonewatch/internal/plugins"
	"github.com/spf13/cobra"
)

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the component kinds a zone document may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := health.NewFactory(health.Deps{Inventory: inventory.NewStatic(), Catalog: plugins.NewStatic(nil)})
			if err != nil {
				return err
			}
			for _, k := range f.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
