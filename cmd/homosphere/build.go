package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	log "github.com/cantara/bragi/sbragi"
	"github.com/spf13/cobra"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/internal/template"
)

func newBuildCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
		jsonResult   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build plans the subnets and writes the VPC template.

Examples:
    homosphere build --zones us-east-1a,us-east-1b
    homosphere build --region eu-west-1 -o vpc.json
    homosphere build --format yaml --single-nat
    homosphere build --json                   # wrap the template in a result object`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, config.Overrides{
				Format: outputFormat,
				Output: outputFile,
			})
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), cmd.OutOrStdout(), cfg, jsonResult)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: json or yaml (default: json)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&jsonResult, "json", false, "Print a JSON build result instead of the bare template")

	return cmd
}

func runBuild(ctx context.Context, w io.Writer, cfg *config.Config, jsonResult bool) error {
	tmpl, _, err := buildProject(ctx, cfg)
	if jsonResult {
		return outputBuildResult(w, tmpl, err)
	}
	if err != nil {
		return err
	}

	data, err := template.Encode(tmpl, cfg.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(w, cfg.Output, data); err != nil {
		return err
	}
	if cfg.Output != "" {
		log.Info("template written", "path", cfg.Output, "resources", len(tmpl.Resources))
	}
	return nil
}

func outputBuildResult(w io.Writer, tmpl *homosphere.Template, buildErr error) error {
	result := homosphere.BuildResult{Success: buildErr == nil}
	if buildErr != nil {
		result.Errors = []string{buildErr.Error()}
	} else {
		result.Template = *tmpl
		result.Resources = resourceNames(tmpl)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))

	if buildErr != nil {
		return fmt.Errorf("build failed")
	}
	return nil
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func resourceNames(tmpl *homosphere.Template) []string {
	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
