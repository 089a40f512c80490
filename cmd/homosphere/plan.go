package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/subnet"
)

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var jsonResult bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the subnet layout",
		Long: `Plan prints the public and private subnet of every availability zone.

Examples:
    homosphere plan --zones us-east-1a,us-east-1b,us-east-1c
    homosphere plan --cidr 172.16.0.0/12 --region eu-west-1
    homosphere plan --json`,
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
			plan, err := session.Allocate(cmd.Context())
			if err != nil {
				return err
			}
			if jsonResult {
				return outputPlanJSON(cmd.OutOrStdout(), plan)
			}
			return outputPlanTable(cmd.OutOrStdout(), plan)
		},
	}

	cmd.Flags().BoolVar(&jsonResult, "json", false, "Print the plan as JSON")

	return cmd
}

func planResult(plan *subnet.Plan) homosphere.PlanResult {
	result := homosphere.PlanResult{
		Network:   plan.Network.String(),
		PrefixLen: plan.PrefixLen,
		Subnets:   make([]homosphere.PlanAssignment, len(plan.Assignments)),
	}
	for i, a := range plan.Assignments {
		result.Subnets[i] = homosphere.PlanAssignment{
			Zone:    a.Zone,
			Public:  a.Public.String(),
			Private: a.Private.String(),
		}
	}
	return result
}

func outputPlanJSON(w io.Writer, plan *subnet.Plan) error {
	data, err := json.MarshalIndent(planResult(plan), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputPlanTable(w io.Writer, plan *subnet.Plan) error {
	fmt.Fprintf(w, "Network: %s\n", plan.Network)
	fmt.Fprintf(w, "Subnets: /%d (%d of %d used)\n\n", plan.PrefixLen, 2*len(plan.Assignments), plan.Capacity())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ZONE\tPUBLIC\tPRIVATE")
	for _, a := range plan.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Zone, a.Public, a.Private)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	free, err := plan.Free()
	if err != nil {
		return err
	}
	if len(free) > 0 {
		fmt.Fprintln(w, "\nUnallocated:")
		for _, p := range free {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}
