// Package graph generates DOT and Mermaid format dependency graphs from templates.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources of the same CloudFormation type.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
// Edges point from a resource to the resources it depends on: GetAtt
// references are blue, explicit DependsOn edges are dashed.
func (g *Generator) Generate(tmpl *homosphere.Template, w io.Writer) error {
	graph := g.buildGraph(tmpl)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *homosphere.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure from template resources.
func (g *Generator) buildGraph(tmpl *homosphere.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := sortedNames(tmpl.Resources)

	var nodes map[string]dot.Node
	if g.ClusterByType {
		nodes = g.addClusteredNodes(graph, tmpl.Resources, names)
	} else {
		nodes = addNodes(graph, tmpl.Resources, names)
	}

	for _, name := range names {
		res := tmpl.Resources[name]
		getAtt := toSet(template.AttributeDependencies(res))
		explicit := toSet(res.DependsOn)

		deps := toSet(template.Dependencies(res))
		for dep := range explicit {
			deps[dep] = true
		}

		for _, dep := range sortedKeys(deps) {
			to, ok := nodes[dep]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[name], to)
			switch {
			case getAtt[dep]:
				e.Attr("color", "blue")
			case explicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// addNodes adds one node per resource to graph.
func addNodes(graph *dot.Graph, resources map[string]homosphere.ResourceDef, names []string) map[string]dot.Node {
	nodes := make(map[string]dot.Node, len(names))
	for _, name := range names {
		nodes[name] = graph.Node(name).Label(nodeLabel(name, resources[name].Type))
	}
	return nodes
}

// addClusteredNodes adds resource nodes grouped by resource type. Edges must
// use the returned nodes: looking a clustered name up on the root graph would
// create a second node.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources map[string]homosphere.ResourceDef, names []string) map[string]dot.Node {
	nodes := make(map[string]dot.Node, len(names))
	byType := make(map[string][]string)
	for _, name := range names {
		t := resources[name].Type
		byType[t] = append(byType[t], name)
	}

	for _, t := range sortedKeys(byType) {
		members := byType[t]
		if len(members) > 1 {
			cluster := graph.Subgraph("cluster_"+shortType(t), dot.ClusterOption{})
			cluster.Attr("label", shortType(t))
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, name := range members {
				nodes[name] = cluster.Node(name).Label(nodeLabel(name, t))
			}
		} else {
			for _, name := range members {
				nodes[name] = graph.Node(name).Label(nodeLabel(name, t))
			}
		}
	}
	return nodes
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

// shortType drops the provider and service from a resource type.
// e.g., "AWS::EC2::Subnet" -> "Subnet"
func shortType(cfType string) string {
	if i := strings.LastIndex(cfType, "::"); i >= 0 {
		return cfType[i+2:]
	}
	return cfType
}

func sortedNames(resources map[string]homosphere.ResourceDef) []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
