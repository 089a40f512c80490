// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	homosphere "github.com/allyunion/homosphere"
)

// OutputType is the DiffEntry type reported for template outputs.
const OutputType = "Output"

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    homosphere.TemplateDiff
	Summary homosphere.DiffSummary
}

// Empty reports whether the templates were equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
// Both templates are normalized through JSON first, so a template read from
// disk compares equal to the one it was generated from.
func Compare(template1, template2 *homosphere.Template, opts Options) (*Result, error) {
	t1, err := normalize(template1)
	if err != nil {
		return nil, fmt.Errorf("normalizing old template: %w", err)
	}
	t2, err := normalize(template2)
	if err != nil {
		return nil, fmt.Errorf("normalizing new template: %w", err)
	}

	result := &Result{}

	// Find added resources (in template2 but not in template1)
	for name, def := range t2.Resources {
		if _, exists := t1.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, homosphere.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find removed resources (in template1 but not in template2)
	for name, def := range t1.Resources {
		if _, exists := t2.Resources[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, homosphere.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range t1.Resources {
		if def2, exists := t2.Resources[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, homosphere.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	compareOutputs(t1.Outputs, t2.Outputs, opts, &result.Diff)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = homosphere.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*homosphere.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a JSON or YAML template.
func ParseTemplate(data []byte) (*homosphere.Template, error) {
	var template homosphere.Template

	// Try JSON first
	if err := json.Unmarshal(data, &template); err != nil {
		template = homosphere.Template{}
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

// normalize round-trips t through JSON so both sides hold the same value
// types (float64 numbers, []any, map[string]any).
func normalize(t *homosphere.Template) (*homosphere.Template, error) {
	if t == nil {
		return &homosphere.Template{}, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var result homosphere.Template
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 homosphere.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareOutputs records added, removed and modified outputs in diff.
func compareOutputs(out1, out2 map[string]homosphere.Output, opts Options, diff *homosphere.TemplateDiff) {
	for name := range out2 {
		if _, exists := out1[name]; !exists {
			diff.Added = append(diff.Added, homosphere.DiffEntry{Resource: name, Type: OutputType})
		}
	}
	for name, o1 := range out1 {
		o2, exists := out2[name]
		if !exists {
			diff.Removed = append(diff.Removed, homosphere.DiffEntry{Resource: name, Type: OutputType})
			continue
		}

		var changes []string
		if o1.Description != o2.Description {
			changes = append(changes, "Description modified")
		}
		if !deepEqual(o1.Value, o2.Value, opts) {
			changes = append(changes, "Value modified")
		}
		switch {
		case o1.Export == nil && o2.Export != nil:
			changes = append(changes, "Export added")
		case o1.Export != nil && o2.Export == nil:
			changes = append(changes, "Export removed")
		case o1.Export != nil && !deepEqual(o1.Export.Name, o2.Export.Name, opts):
			changes = append(changes, "Export modified")
		}
		if len(changes) > 0 {
			diff.Modified = append(diff.Modified, homosphere.DiffEntry{
				Resource: name,
				Type:     OutputType,
				Changes:  changes,
			})
		}
	}
}

// compareProperties recursively compares property maps.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// isIntrinsic reports whether m is a single-key Ref or Fn:: call.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || len(k) > 4 && k[:4] == "Fn::"
	}
	return false
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by the JSON encoding of their elements.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		type keyed struct {
			key string
			val any
		}
		items := make([]keyed, len(val))
		for i, elem := range val {
			n := normalizeValue(elem)
			items[i] = keyed{key: sortKey(n), val: n}
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].key < items[j].key
		})
		result := make([]any, len(items))
		for i, item := range items {
			result[i] = item.val
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func sortKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by type and then name.
func sortEntries(entries []homosphere.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if (entries[i].Type == OutputType) != (entries[j].Type == OutputType) {
			return entries[j].Type == OutputType
		}
		return entries[i].Resource < entries[j].Resource
	})
}
