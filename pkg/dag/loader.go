package dag

import (
	"fmt"
	"strings"

	"github.com/mk10pro/truthcore/pkg/versioning"
	"gopkg.in/yaml.v3"
)

// source mirrors the DAG source format from the external-interfaces
// section: {id, format_version, nodes: [{id, type, config}], edges: [{from, to}]}.
type source struct {
	ID            string `yaml:"id"`
	FormatVersion string `yaml:"format_version"`
	Nodes         []struct {
		ID     string                 `yaml:"id"`
		Type   string                 `yaml:"type"`
		Config map[string]interface{} `yaml:"config"`
	} `yaml:"nodes"`
	Edges []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"edges"`
}

// Parse reads a DAG source document (YAML or JSON — JSON is a YAML
// subset, so one decoder serves both) and builds a validated Graph:
// node ids unique, edge endpoints resolved, no cycles, every declared
// input port singly connected.
func Parse(doc []byte) (*Graph, error) {
	var src source
	if err := yaml.Unmarshal(doc, &src); err != nil {
		return nil, fmt.Errorf("dag: parse source: %w", err)
	}
	if err := versioning.Check(src.FormatVersion, versioning.CurrentRange); err != nil {
		return nil, fmt.Errorf("dag: %w", err)
	}

	g := New(src.ID)
	portIndex := make(map[string][]string) // node id -> inferred input ports

	for _, n := range src.Nodes {
		if err := g.AddNode(Node{ID: n.ID, Type: n.Type, Config: n.Config}); err != nil {
			return nil, err
		}
	}

	for _, e := range src.Edges {
		from, err := parsePort(e.From)
		if err != nil {
			return nil, err
		}
		to, err := parsePort(e.To)
		if err != nil {
			return nil, err
		}
		if err := g.AddEdge(Edge{From: from, To: to}); err != nil {
			return nil, err
		}
		portIndex[to.Node] = append(portIndex[to.Node], to.Port)
	}

	for id, ports := range portIndex {
		n := g.nodes[id]
		n.Inputs = dedupe(ports)
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	if err := g.ValidatePorts(); err != nil {
		return nil, err
	}
	return g, nil
}

func parsePort(s string) (Port, error) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return Port{}, &PortMismatch{Detail: fmt.Sprintf("malformed port reference %q, want node.port", s)}
	}
	return Port{Node: s[:idx], Port: s[idx+1:]}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
