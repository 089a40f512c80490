// Package template assembles CloudFormation templates from resource structs.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	log "github.com/cantara/bragi/sbragi"
	"gopkg.in/yaml.v3"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/serialize"
)

// FormatVersion is the only AWSTemplateFormatVersion CloudFormation accepts.
const FormatVersion = "2010-09-09"

var (
	// ErrEmptyName is returned when a resource or output has no logical name.
	ErrEmptyName = errors.New("empty logical name")
	// ErrDuplicateResource is returned when a logical name is added twice.
	ErrDuplicateResource = errors.New("duplicate resource")
	// ErrDuplicateOutput is returned when an output name is added twice.
	ErrDuplicateOutput = errors.New("duplicate output")
	// ErrMissingDependency is returned when a resource or output references a resource that was never added.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrCircularDependency is returned when resources reference each other in a cycle.
	ErrCircularDependency = errors.New("circular dependency detected")
)

type entry struct {
	resource  homosphere.Resource
	dependsOn []string
	props     map[string]any
	deps      []string
}

// Builder constructs a CloudFormation template. Resources may be added in any
// order; Build checks that every reference resolves and that the dependency
// graph is acyclic.
type Builder struct {
	description string
	resources   map[string]*entry
	outputs     map[string]homosphere.Output
	added       []string
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]*entry),
		outputs:     make(map[string]homosphere.Output),
	}
}

// Add registers a resource under a logical name. dependsOn becomes the
// resource's explicit DependsOn attribute.
func (b *Builder) Add(name string, res homosphere.Resource, dependsOn ...string) error {
	if name == "" {
		return ErrEmptyName
	}
	if res == nil {
		return fmt.Errorf("resource %s: nil value", name)
	}
	if _, exists := b.resources[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, name)
	}
	b.resources[name] = &entry{
		resource:  res,
		dependsOn: append([]string(nil), dependsOn...),
	}
	b.added = append(b.added, name)
	log.Trace("resource added", "name", name, "type", res.ResourceType())
	return nil
}

// AddOutput registers a template output. Outputs are never overwritten.
func (b *Builder) AddOutput(name string, out homosphere.Output) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := b.outputs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOutput, name)
	}
	b.outputs[name] = out
	return nil
}

// Has reports whether a resource with the logical name was added.
func (b *Builder) Has(name string) bool {
	_, ok := b.resources[name]
	return ok
}

// Len returns the number of resources added.
func (b *Builder) Len() int {
	return len(b.resources)
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*homosphere.Template, error) {
	for _, name := range b.added {
		e := b.resources[name]
		props, err := serialize.Resource(e.resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		e.props = props
		e.deps = mergeDeps(Dependencies(props), e.dependsOn)
		for _, dep := range e.deps {
			if _, ok := b.resources[dep]; !ok {
				return nil, fmt.Errorf("%w: %s references %s", ErrMissingDependency, name, dep)
			}
		}
	}

	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	tmpl := &homosphere.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]homosphere.ResourceDef, len(order)),
	}

	for _, name := range order {
		e := b.resources[name]
		tmpl.Resources[name] = homosphere.ResourceDef{
			Type:       e.resource.ResourceType(),
			Properties: e.props,
			DependsOn:  e.dependsOn,
		}
	}

	if len(b.outputs) > 0 {
		tmpl.Outputs = make(map[string]homosphere.Output, len(b.outputs))
		for name, out := range b.outputs {
			serialized, err := b.serializeOutput(name, out)
			if err != nil {
				return nil, err
			}
			tmpl.Outputs[name] = serialized
		}
	}

	log.Debug("template built", "resources", len(tmpl.Resources), "outputs", len(tmpl.Outputs))
	return tmpl, nil
}

// serializeOutput converts intrinsic values to their map form and checks
// that the output only references known resources.
func (b *Builder) serializeOutput(name string, out homosphere.Output) (homosphere.Output, error) {
	value, err := serialize.Value(out.Value)
	if err != nil {
		return homosphere.Output{}, fmt.Errorf("serializing output %s: %w", name, err)
	}
	if value == nil {
		return homosphere.Output{}, fmt.Errorf("output %s: missing value", name)
	}
	result := homosphere.Output{Description: out.Description, Value: value}

	if out.Export != nil {
		exportName, err := serialize.Value(out.Export.Name)
		if err != nil {
			return homosphere.Output{}, fmt.Errorf("serializing export of %s: %w", name, err)
		}
		result.Export = &homosphere.Export{Name: exportName}
	}

	for _, dep := range Dependencies(result) {
		if _, ok := b.resources[dep]; !ok {
			return homosphere.Output{}, fmt.Errorf("%w: output %s references %s", ErrMissingDependency, name, dep)
		}
	}
	return result, nil
}

func mergeDeps(implicit, explicit []string) []string {
	seen := make(map[string]bool, len(implicit)+len(explicit))
	var result []string
	for _, list := range [][]string{implicit, explicit} {
		for _, dep := range list {
			if !seen[dep] {
				seen[dep] = true
				result = append(result, dep)
			}
		}
	}
	sort.Strings(result)
	return result
}

var subRef = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// Dependencies returns the sorted logical IDs referenced by Ref, Fn::GetAtt
// and Fn::Sub anywhere inside value. Pseudo parameters (AWS::*) are skipped.
//
// value may be serialized properties (maps and slices), a homosphere.Output,
// or a homosphere.ResourceDef.
func Dependencies(value any) []string {
	return collect(value, false)
}

// AttributeDependencies returns the sorted logical IDs referenced through
// Fn::GetAtt inside value.
func AttributeDependencies(value any) []string {
	return collect(value, true)
}

func collect(value any, attrOnly bool) []string {
	found := make(map[string]bool)
	collectDeps(value, found, attrOnly)

	result := make([]string, 0, len(found))
	for name := range found {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func collectDeps(value any, found map[string]bool, attrOnly bool) {
	add := func(name string) {
		if name != "" && !strings.HasPrefix(name, "AWS::") {
			found[name] = true
		}
	}

	switch v := value.(type) {
	case homosphere.Output:
		collectDeps(v.Value, found, attrOnly)
		if v.Export != nil {
			collectDeps(v.Export.Name, found, attrOnly)
		}
	case homosphere.ResourceDef:
		collectDeps(v.Properties, found, attrOnly)
	case map[string]any:
		if ref, ok := v["Ref"].(string); ok && len(v) == 1 {
			if !attrOnly {
				add(ref)
			}
			return
		}
		if getAtt, ok := v["Fn::GetAtt"]; ok && len(v) == 1 {
			switch args := getAtt.(type) {
			case []any:
				if len(args) > 0 {
					if name, ok := args[0].(string); ok {
						add(name)
					}
				}
			case []string:
				if len(args) > 0 {
					add(args[0])
				}
			case string:
				name, _, _ := strings.Cut(args, ".")
				add(name)
			}
			return
		}
		if sub, ok := v["Fn::Sub"]; ok && len(v) == 1 {
			collectSub(sub, found, attrOnly, add)
			return
		}
		for _, val := range v {
			collectDeps(val, found, attrOnly)
		}
	case []any:
		for _, elem := range v {
			collectDeps(elem, found, attrOnly)
		}
	}
}

// collectSub handles both Fn::Sub forms: a bare string, or [string, vars].
// Names bound in vars are local to the substitution.
func collectSub(sub any, found map[string]bool, attrOnly bool, add func(string)) {
	var (
		str  string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		str = s
	case []any:
		if len(s) > 0 {
			str, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
		}
	}

	if !attrOnly {
		for _, m := range subRef.FindAllStringSubmatch(str, -1) {
			name, _, _ := strings.Cut(m[1], ".")
			if _, local := vars[name]; local {
				continue
			}
			add(name)
		}
	}
	for _, val := range vars {
		collectDeps(val, found, attrOnly)
	}
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, e := range b.resources {
		for _, dep := range e.deps {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var stack []string

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		onPath[node] = true
		stack = append(stack, node)

		for _, dep := range b.resources[node].deps {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					return true
				}
			} else if onPath[dep] {
				for i, name := range stack {
					if name == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			}
		}

		onPath[node] = false
		stack = stack[:len(stack)-1]
		return false
	}

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " → "))
	}
	return ErrCircularDependency
}

// ToJSON serializes the template to JSON.
func ToJSON(t *homosphere.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *homosphere.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Encode serializes the template in the named format ("json" or "yaml").
func Encode(t *homosphere.Template, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := ToJSON(t)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return ToYAML(t)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
