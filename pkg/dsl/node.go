package dsl

import (
	"maps"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node     domain.Node
	children []*NodeBuilder
}

// Node starts a node of the given type name.
func Node(name string) *NodeBuilder {
	return &NodeBuilder{node: domain.Node{Name: name}}
}

// Ref starts a subtree reference to the document at path.
func Ref(path string) *NodeBuilder {
	return &NodeBuilder{node: domain.Node{Name: "SubTree", Path: path}}
}

// Desc sets the node annotation.
func (n *NodeBuilder) Desc(desc string) *NodeBuilder {
	n.node.Desc = desc
	return n
}

// Arg sets an argument value.
func (n *NodeBuilder) Arg(name string, value any) *NodeBuilder {
	if n.node.Args == nil {
		n.node.Args = make(map[string]any)
	}
	n.node.Args[name] = value
	return n
}

// Input appends input variable names. Empty names keep a slot unbound.
func (n *NodeBuilder) Input(vars ...string) *NodeBuilder {
	n.node.Input = append(n.node.Input, vars...)
	return n
}

// Output appends output variable names.
func (n *NodeBuilder) Output(vars ...string) *NodeBuilder {
	n.node.Output = append(n.node.Output, vars...)
	return n
}

// Debug marks the node for debugging.
func (n *NodeBuilder) Debug() *NodeBuilder {
	n.node.Debug = true
	return n
}

// Disabled marks the node as disabled.
func (n *NodeBuilder) Disabled() *NodeBuilder {
	n.node.Disabled = true
	return n
}

// Children appends child nodes.
func (n *NodeBuilder) Children(children ...*NodeBuilder) *NodeBuilder {
	n.children = append(n.children, children...)
	return n
}

// Build returns a fresh domain.Node tree.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() *domain.Node {
	out := n.node
	out.Args = maps.Clone(n.node.Args)
	out.Input = slices.Clone(n.node.Input)
	out.Output = slices.Clone(n.node.Output)
	out.Children = nil
	for _, c := range n.children {
		out.Children = append(out.Children, c.Build())
	}
	return &out
}
