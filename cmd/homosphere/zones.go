package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allyunion/homosphere/internal/config"
)

func newZonesCmd(flags *globalFlags) *cobra.Command {
	var jsonResult bool

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List the availability zones subnets are planned for",
		Long: `Zones lists the available availability zones of the region, in the order
subnets are assigned to them.

Examples:
    homosphere zones --region us-west-2
    homosphere zones --profile staging --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			session, err := newSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			zones, err := session.Zones(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonResult {
				data, err := json.MarshalIndent(zones, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			for _, z := range zones {
				fmt.Fprintln(out, z)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonResult, "json", false, "Print the zones as a JSON array")

	return cmd
}
