package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/internal/differ"
)

func newDiffCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template>",
		Short: "Compare a template file with the one the current settings generate",
		Long: `Diff loads a previously generated template (JSON or YAML) and reports the
resources and outputs that the current settings would add, remove or change.

Examples:
    homosphere diff vpc.json --zones us-east-1a,us-east-1b,us-east-1c
    homosphere diff vpc.yaml --cidr 10.1.0.0/16 --format json
    homosphere diff vpc.json --exit-code      # fail when the templates differ`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, err := differ.LoadTemplate(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			current, _, err := buildProject(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			result, err := differ.Compare(previous, current, differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			if err := outputDiff(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if exitCode && !result.Empty() {
				return fmt.Errorf("templates differ: %d changes", result.Summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with an error when the templates differ")

	return cmd
}

func outputDiff(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    homosphere.TemplateDiff `json:"diff"`
			Summary homosphere.DiffSummary  `json:"summary"`
		}{result.Diff, result.Summary}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	case "text":
	default:
		return fmt.Errorf("unknown format: %s (use 'text' or 'json')", format)
	}

	if result.Empty() {
		fmt.Fprintln(w, "No differences")
		return nil
	}

	for _, e := range result.Diff.Added {
		fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}

	s := result.Summary
	fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n", s.Added, s.Removed, s.Modified)
	return nil
}
