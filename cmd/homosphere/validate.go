package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/internal/differ"
	"github.com/allyunion/homosphere/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for linting a template.
func newValidateCmd(flags *globalFlags) *cobra.Command {
	var jsonResult bool

	cmd := &cobra.Command{
		Use:   "validate [template]",
		Short: "Lint the generated template",
		Long: `Validate lints a template with cfn-lint and checks its subnet layout.

Without an argument the template is generated from the current settings.

Checks performed:
  - cfn-lint rules: CloudFormation schema and best practices
  - Subnet layout: every subnet lies inside the VPC block and none overlap

Examples:
    homosphere validate --zones us-east-1a,us-east-1b
    homosphere validate vpc.json
    homosphere validate --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				tmpl *homosphere.Template
				err  error
			)
			if len(args) == 1 {
				tmpl, err = differ.LoadTemplate(args[0])
			} else {
				var cfg *config.Config
				cfg, err = loadConfig(cmd, flags, config.Overrides{})
				if err == nil {
					tmpl, _, err = buildProject(cmd.Context(), cfg)
				}
			}
			if err != nil {
				return err
			}

			result, err := validation.Validate(tmpl)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			return outputValidateResult(cmd.OutOrStdout(), *result, jsonResult)
		},
	}

	cmd.Flags().BoolVar(&jsonResult, "json", false, "Print the result as JSON")

	return cmd
}

func outputValidateResult(w io.Writer, result homosphere.ValidateResult, jsonResult bool) error {
	if jsonResult {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	} else {
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
		} else {
			fmt.Fprintln(w, "Validation FAILED:")
			for _, errMsg := range result.Errors {
				fmt.Fprintf(w, "  error: %s\n", errMsg)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	}

	if !result.Success {
		return fmt.Errorf("validation failed with %d errors", len(result.Errors))
	}
	return nil
}
