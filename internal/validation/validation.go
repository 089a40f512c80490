// Package validation checks generated VPC templates.
//
// Two passes run over a template:
//   - cfn-lint-go: CloudFormation schema and best-practice rules (library dependency)
//   - subnet layout: every literal subnet CIDR lies inside the VPC block and no two overlap
package validation

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/cantara/bragi/sbragi"
	"github.com/lex00/cfn-lint-go/pkg/lint"
	"go4.org/netipx"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Passed if no errors (warnings are acceptable)
	result.Passed = len(result.Errors) == 0
	log.Debug("cfn-lint finished", "template", templatePath, "matches", len(matches))

	return result, nil
}

// LintTemplate writes tmpl to a temporary JSON file and lints it.
func LintTemplate(tmpl *homosphere.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	dir, err := os.MkdirTemp("", "homosphere-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}

// CheckSubnets reports subnet layout problems in tmpl. Subnets whose
// CidrBlock is not a literal (an intrinsic, for example) are skipped.
func CheckSubnets(tmpl *homosphere.Template) []string {
	var issues []string

	var vpcs []netip.Prefix
	type named struct {
		name   string
		prefix netip.Prefix
	}
	var subnets []named

	for _, name := range sortedNames(tmpl.Resources) {
		res := tmpl.Resources[name]
		cidr, ok := res.Properties["CidrBlock"].(string)
		if !ok {
			continue
		}
		p, err := netip.ParsePrefix(cidr)
		if err != nil || p.Masked() != p {
			issues = append(issues, fmt.Sprintf("%s: invalid CidrBlock %q", name, cidr))
			continue
		}
		switch res.Type {
		case "AWS::EC2::VPC":
			vpcs = append(vpcs, p)
		case "AWS::EC2::Subnet":
			subnets = append(subnets, named{name, p})
		}
	}

	var b netipx.IPSetBuilder
	for _, v := range vpcs {
		b.AddPrefix(v)
	}
	vpcSet, err := b.IPSet()
	if err != nil {
		return append(issues, fmt.Sprintf("building VPC address set: %v", err))
	}

	var seen netipx.IPSetBuilder
	owners := make(map[netip.Prefix]string)
	for _, s := range subnets {
		if len(vpcs) > 0 && !vpcSet.ContainsPrefix(s.prefix) {
			issues = append(issues, fmt.Sprintf("%s: %s is outside the VPC CIDR block", s.name, s.prefix))
		}
		current, err := seen.IPSet()
		if err != nil {
			return append(issues, fmt.Sprintf("building subnet address set: %v", err))
		}
		if current.OverlapsPrefix(s.prefix) {
			issues = append(issues, fmt.Sprintf("%s: %s overlaps %s", s.name, s.prefix, overlapOwner(owners, s.prefix)))
		}
		seen.AddPrefix(s.prefix)
		owners[s.prefix] = s.name
	}

	return issues
}

func overlapOwner(owners map[netip.Prefix]string, p netip.Prefix) string {
	var names []string
	for q, name := range owners {
		if q.Overlaps(p) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func sortedNames(resources map[string]homosphere.ResourceDef) []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate runs cfn-lint and the subnet layout check on tmpl.
func Validate(tmpl *homosphere.Template) (*homosphere.ValidateResult, error) {
	lintResult, err := LintTemplate(tmpl)
	if err != nil {
		return nil, err
	}

	result := &homosphere.ValidateResult{
		Resources: len(tmpl.Resources),
		Errors:    append([]string(nil), lintResult.Errors...),
		Warnings:  append(append([]string(nil), lintResult.Warnings...), lintResult.Informational...),
	}
	result.Errors = append(result.Errors, CheckSubnets(tmpl)...)
	result.Success = len(result.Errors) == 0

	return result, nil
}
