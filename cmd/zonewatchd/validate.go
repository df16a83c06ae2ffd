// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/ManuGH/zonewatch/internal/app/bootstrap"
	"github.com/ManuGH/zonewatch/internal/config"
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/version"
	"github.com/spf13/cobra"
)

func newValidateCmd(configPath *string) *cobra.Command {
	var (
		zonesPath string
		show      bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and optionally a zone document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(*configPath, version.Version).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if show {
				data, err := config.MarshalRedacted(cfg)
				if err != nil {
					return err
				}
				_, _ = out.Write(data)
			}
			if zonesPath != "" {
				names, err := validateZones(cfg, zonesPath)
				if err != nil {
					return fmt.Errorf("%s: %w", zonesPath, err)
				}
				fmt.Fprintf(out, "zone document ok: %d zones %v\n", len(names), names)
			}
			fmt.Fprintln(out, "configuration ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&zonesPath, "zones", "", "zone document to check against the registered kinds")
	cmd.Flags().BoolVar(&show, "show", false, "print the effective configuration with secrets redacted")
	return cmd
}

// validateZones builds every zone of the document without persisting it.
func validateZones(cfg config.AppConfig, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := derived.DecodeDocument(f)
	if err != nil {
		return nil, err
	}
	factory, err := health.NewFactory(health.Deps{
		Inventory: bootstrap.Inventory(cfg),
		Catalog:   bootstrap.Catalog(cfg),
	})
	if err != nil {
		return nil, err
	}
	if _, err := factory.BuildAll(doc); err != nil {
		return nil, err
	}
	return doc.Names(), nil
}
