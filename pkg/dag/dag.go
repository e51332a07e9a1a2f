// Package dag implements a typed node+edge graph with cycle detection,
// deterministic topological ordering, and a canonical fingerprint.
package dag

import (
	"fmt"
	"sort"

	"github.com/mk10pro/truthcore/pkg/canonical"
	"github.com/mk10pro/truthcore/pkg/crypto"
)

// Node is a DAG node declaration (not to be confused with pkg/node.Node,
// the runtime execution contract — this is the static graph shape).
type Node struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Config  map[string]interface{} `json:"config"`
	Inputs  []string               `json:"inputs"`
	Outputs []string               `json:"outputs"`
}

// Port identifies a named port on a node.
type Port struct {
	Node string
	Port string
}

// Edge is a directed dependency between two ports. Edges form a set;
// duplicates collapse when added.
type Edge struct {
	From Port
	To   Port
}

// CycleDetected is returned when the graph contains a cycle; NodeIDs lists
// the nodes implicated, in DFS discovery order.
type CycleDetected struct {
	NodeIDs []string
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.NodeIDs)
}

// PortMismatch is returned when an edge references a nonexistent node/port,
// or a required input port has no incoming edge.
type PortMismatch struct {
	Detail string
}

func (e *PortMismatch) Error() string {
	return fmt.Sprintf("port mismatch: %s", e.Detail)
}

// Graph is an ordered sequence of nodes plus a set of edges.
type Graph struct {
	ID    string
	nodes map[string]*Node
	order []string // insertion order of node IDs, for AddNode determinism only
	edges map[string]Edge
}

// New creates an empty graph identified by id (the DAG source's own "id"
// field, distinct from any node id).
func New(id string) *Graph {
	return &Graph{ID: id, nodes: make(map[string]*Node), edges: make(map[string]Edge)}
}

// AddNode registers a node. Returns an error if the id is already used.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.nodes[n.ID]; exists {
		return &PortMismatch{Detail: fmt.Sprintf("duplicate node id %q", n.ID)}
	}
	cp := n
	g.nodes[n.ID] = &cp
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge registers an edge. Duplicate edges (same src/dst pair) collapse
// silently, per the data model's edge-set semantics. The source endpoint
// is allowed to reference either a graph node or an external ingest-asset
// key (source nodes have no in-graph producer); only the destination must
// resolve to a registered node.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.To.Node]; !ok {
		return &PortMismatch{Detail: fmt.Sprintf("edge references unknown destination node %q", e.To.Node)}
	}
	key := fmt.Sprintf("%s.%s->%s.%s", e.From.Node, e.From.Port, e.To.Node, e.To.Port)
	g.edges[key] = e
	return nil
}

// Node returns the node with the given id, or false if absent.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns all edges in the graph, in no particular order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// EdgesInto returns the edges whose destination is the given node/port.
func (g *Graph) EdgesInto(nodeID, port string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To.Node == nodeID && e.To.Port == port {
			out = append(out, e)
		}
	}
	return out
}

// ValidatePorts checks the "every non-source input port has exactly one
// incoming edge" invariant. Nodes whose declared Inputs list is empty are
// treated as source nodes and are exempt.
func (g *Graph) ValidatePorts() error {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, port := range n.Inputs {
			edges := g.EdgesInto(id, port)
			if len(edges) == 0 {
				return &PortMismatch{Detail: fmt.Sprintf("node %q input port %q has no incoming edge", id, port)}
			}
			if len(edges) > 1 {
				return &PortMismatch{Detail: fmt.Sprintf("node %q input port %q has %d incoming edges, want 1", id, port, len(edges))}
			}
		}
	}
	return nil
}

// ValidateRequiredPorts checks that every port named in required (keyed by
// node id) has exactly one incoming edge. This is distinct from
// ValidatePorts, which only checks ports a node happens to have received an
// edge for; ValidateRequiredPorts additionally catches a node type's
// declared input port that received no edge at all — the "missing input
// port" planning-time failure.
func (g *Graph) ValidateRequiredPorts(required map[string][]string) error {
	for id, ports := range required {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		for _, port := range ports {
			edges := g.EdgesInto(id, port)
			if len(edges) == 0 {
				return &PortMismatch{Detail: fmt.Sprintf("node %q is missing required input port %q", id, port)}
			}
			if len(edges) > 1 {
				return &PortMismatch{Detail: fmt.Sprintf("node %q input port %q has %d incoming edges, want 1", id, port, len(edges))}
			}
		}
	}
	return nil
}

// DetectCycles runs three-color DFS cycle detection.
func (g *Graph) DetectCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))
	for _, id := range g.order {
		color[id] = white
	}
	adj := g.adjacency()

	var stack []string
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		stack = append(stack, id)
		targets := adj[id]
		sort.Strings(targets)
		for _, next := range targets {
			switch color[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				cycle := append([]string{}, stack...)
				cycle = append(cycle, next)
				return &CycleDetected{NodeIDs: cycle}
			}
		}
		color[id] = black
		stack = stack[:len(stack)-1]
		return nil
	}

	ids := append([]string{}, g.order...)
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// adjacency builds a node-to-node dependency map from edges whose source is
// itself a graph node. An edge sourced from an external ingest key carries
// no topological dependency — the asset is available before the run even
// starts — so it is excluded here.
func (g *Graph) adjacency() map[string][]string {
	adj := make(map[string][]string)
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From.Node]; !ok {
			continue
		}
		adj[e.From.Node] = append(adj[e.From.Node], e.To.Node)
	}
	return adj
}

// TopoOrder computes a topological order using Kahn's algorithm, breaking
// ties by the lexicographic order of node ids so the same DAG always
// produces the same order.
func (g *Graph) TopoOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = 0
	}
	adj := g.adjacency()
	for _, targets := range adj {
		for _, t := range targets {
			indegree[t]++
		}
	}

	ready := make([]string, 0)
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var result []string
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		result = append(result, next)
		for _, t := range adj[next] {
			indegree[t]--
			if indegree[t] == 0 {
				ready = append(ready, t)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, &CycleDetected{NodeIDs: g.remaining(indegree)}
	}
	return result, nil
}

func (g *Graph) remaining(indegree map[string]int) []string {
	var out []string
	for id, d := range indegree {
		if d > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// canonicalForm is the shape hashed by Fingerprint: nodes sorted by id,
// edges sorted lexicographically by their string form.
type canonicalForm struct {
	Nodes []Node   `json:"nodes"`
	Edges []string `json:"edges"`
}

// CanonicalBytes returns the canonical JSON encoding of
// {nodes: [...sorted by id...], edges: [...sorted lex...]} — the exact
// bytes that Fingerprint hashes, exposed separately because the Execution
// ID (§3) is defined over these bytes directly, not over their hash.
func (g *Graph) CanonicalBytes() ([]byte, error) {
	nodeIDs := append([]string{}, g.order...)
	sort.Strings(nodeIDs)
	nodes := make([]Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes = append(nodes, *g.nodes[id])
	}

	edgeStrs := make([]string, 0, len(g.edges))
	for k := range g.edges {
		edgeStrs = append(edgeStrs, k)
	}
	sort.Strings(edgeStrs)

	form := canonicalForm{Nodes: nodes, Edges: edgeStrs}
	enc, err := canonical.Encode(form)
	if err != nil {
		return nil, fmt.Errorf("dag: canonicalize: %w", err)
	}
	return enc, nil
}

// Fingerprint returns the canonical hash of the graph: canonical JSON of
// {nodes: [...sorted by id...], edges: [...sorted lex...]}, hashed SHA-256.
func (g *Graph) Fingerprint() (string, error) {
	enc, err := g.CanonicalBytes()
	if err != nil {
		return "", fmt.Errorf("dag: fingerprint: %w", err)
	}
	return crypto.Hash(enc, crypto.SHA256)
}
