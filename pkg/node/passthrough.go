package node

import "context"

// passthrough is the one canonical node type the core ships: its outputs
// equal its inputs. It declares a single "in" -> "out" port pair; callers
// needing more ports implement their own external node type.
type passthrough struct {
	id     string
	config map[string]interface{}
}

func newPassthrough(id string, config map[string]interface{}) (Node, error) {
	return &passthrough{id: id, config: config}, nil
}

func (p *passthrough) ID() string                       { return p.id }
func (p *passthrough) Type() string                     { return "passthrough" }
func (p *passthrough) Config() map[string]interface{}   { return p.config }
func (p *passthrough) Inputs() []string                 { return []string{"in"} }
func (p *passthrough) Outputs() []string                { return []string{"out"} }
func (p *passthrough) Evidence() map[string]interface{} { return nil }

func (p *passthrough) Execute(_ context.Context, inputs map[string]string) (map[string]string, error) {
	addr, ok := inputs["in"]
	if !ok {
		return nil, &PortMismatchError{Node: p.id, Port: "in"}
	}
	return map[string]string{"out": addr}, nil
}

// PortMismatchError is raised when a node's Execute is called without one
// of its declared input ports populated.
type PortMismatchError struct {
	Node string
	Port string
}

func (e *PortMismatchError) Error() string {
	return "node " + e.Node + ": missing input port " + e.Port
}
