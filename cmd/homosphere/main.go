// Command homosphere generates a CloudFormation VPC template with one public
// and one private subnet per availability zone.
//
// Usage:
//
//	homosphere build --name prod              Generate the template
//	homosphere plan --cidr 10.1.0.0/16        Show the subnet layout
//	homosphere validate                       Lint the generated template
//	homosphere version                        Show version
package main

import (
	"fmt"
	"os"

	log "github.com/cantara/bragi/sbragi"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand and override the project file.
type globalFlags struct {
	configFile   string
	name         string
	cidr         string
	region       string
	profile      string
	zones        []string
	exportPrefix string
	singleNat    bool
	tags         map[string]string
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "homosphere",
		Short: "Generate CloudFormation VPC templates",
		Long: `homosphere generates a CloudFormation template for a VPC with one public
and one private subnet in every availability zone of a region.

Subnets are sized from the VPC CIDR block and the zone count, so a /16
across three zones yields six /19 subnets:

    homosphere plan --cidr 10.0.0.0/16 --zones us-east-1a,us-east-1b,us-east-1c

Settings are read from homosphere.yaml when present; flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.verbose {
				dl, err := log.NewDebugLogger()
				if err != nil {
					return fmt.Errorf("creating debug logger: %w", err)
				}
				dl.SetDefault()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "homosphere.yaml", "Project file")
	pf.StringVar(&flags.name, "name", "", "Name tag prefix (default: the stack name)")
	pf.StringVar(&flags.cidr, "cidr", "", "VPC CIDR block (default: 10.0.0.0/16)")
	pf.StringVar(&flags.region, "region", "", "AWS region to list availability zones in")
	pf.StringVar(&flags.profile, "profile", "", "AWS shared config profile")
	pf.StringSliceVar(&flags.zones, "zones", nil, "Comma-separated availability zones (skips the AWS lookup)")
	pf.StringVar(&flags.exportPrefix, "export-prefix", "", "Prefix for output export names (default: the stack name)")
	pf.BoolVar(&flags.singleNat, "single-nat", false, "Route every private subnet through one NAT gateway")
	pf.StringToStringVar(&flags.tags, "tag", nil, "Tag applied to every resource, as key=value (repeatable)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newBuildCmd(flags),
		newPlanCmd(flags),
		newZonesCmd(flags),
		newGraphCmd(flags),
		newValidateCmd(flags),
		newDiffCmd(flags),
		newWatchCmd(flags),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "homosphere %s\n", getVersion())
		},
	}
}
