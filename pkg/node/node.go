// Package node defines the pure-transformation contract every DAG node
// implements, and a registry mapping a string type tag to a node
// constructor — polymorphism via capability set, not inheritance.
package node

import (
	"context"
	"fmt"
)

// Node is the runtime execution contract. Execute must be pure: no wall
// clock, no randomness, no environment, no network. Inputs and outputs are
// mappings from port name to content address.
type Node interface {
	ID() string
	Type() string
	Config() map[string]interface{}
	Inputs() []string
	Outputs() []string
	Execute(ctx context.Context, inputs map[string]string) (outputs map[string]string, err error)
	Evidence() map[string]interface{}
}

// Factory constructs a Node of a registered type from an id and config.
type Factory func(id string, config map[string]interface{}) (Node, error)

// Registry maps a string type tag to a Factory. It is an ordinary value,
// not a package-level global: each NewRegistry call returns its own.
// Registration is append-only — a tag once registered cannot be replaced
// or removed — but new tags may be added at any time.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the one canonical node
// type the core ships: Passthrough.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.MustRegister("passthrough", newPassthrough)
	return r
}

// UnknownNodeType is returned when a DAG references a type tag with no
// registered factory.
type UnknownNodeType struct {
	Type string
}

func (e *UnknownNodeType) Error() string {
	return fmt.Sprintf("unknown node type %q", e.Type)
}

// Register adds a factory under typeTag. Re-registering an existing tag is
// an error — the registry is append-only within a process.
func (r *Registry) Register(typeTag string, f Factory) error {
	if _, exists := r.factories[typeTag]; exists {
		return fmt.Errorf("node: type %q already registered", typeTag)
	}
	r.factories[typeTag] = f
	return nil
}

// MustRegister panics on a duplicate registration — reserved for
// process-init-time registration where a collision is a programmer error,
// not a runtime condition to recover from.
func (r *Registry) MustRegister(typeTag string, f Factory) {
	if err := r.Register(typeTag, f); err != nil {
		panic(err)
	}
}

// New constructs a Node of the given type, or UnknownNodeType.
func (r *Registry) New(typeTag, id string, config map[string]interface{}) (Node, error) {
	f, ok := r.factories[typeTag]
	if !ok {
		return nil, &UnknownNodeType{Type: typeTag}
	}
	return f(id, config)
}

// Types returns the registered type tags.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}
