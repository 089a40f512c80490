package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/internal/graph"
)

func newGraphCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    homosphere graph --zones us-east-1a,us-east-1b | dot -Tpng -o vpc.png

Or used in GitHub markdown (Mermaid format):
    homosphere graph -f mermaid

Examples:
    homosphere graph
    homosphere graph -c              # cluster by resource type
    homosphere graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			cfg, err := loadConfig(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			tmpl, _, err := buildProject(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:        graphFormat,
				ClusterByType: clusterByType,
			}
			return gen.Generate(tmpl, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by CloudFormation type")

	return cmd
}
