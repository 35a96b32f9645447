// Package view is the minimal host runtime bound trees render on: a node
// tree produced by render functions, component-local state, post-pass
// effects and a settle loop that re-renders until no state is pending.
package view

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// Node kinds emitted by the binding layer.
const (
	KindField   = "field"
	KindGroup   = "group"
	KindList    = "list"
	KindItem    = "item"
	KindElement = "element"
)

// Node is one element of a rendered tree.
type Node struct {
	Kind string
	// Key identifies the node among its siblings.
	Key string
	// Name is the bound full path; nil for layout-only nodes.
	Name fieldpath.Path
	// Type is the value kind reachable at Name, when known.
	Type     string
	Value    any
	Errors   []string
	Required bool
	Props    map[string]any
	Children []*Node
}

// Render produces the nodes of one component for the current pass.
type Render func(ctx context.Context) []*Node

// Prop returns a string property or "".
func (n *Node) Prop(key string) string {
	if n == nil || n.Props == nil {
		return ""
	}
	if value, ok := n.Props[key].(string); ok {
		return value
	}
	return ""
}

// Element builds a plain layout node.
func Element(tag string, props map[string]any, children ...*Node) *Node {
	if props == nil {
		props = map[string]any{}
	}
	props["tag"] = tag
	return &Node{Kind: KindElement, Key: tag, Props: props, Children: children}
}

// Fragment renders several components in order.
func Fragment(renders ...Render) Render {
	return func(ctx context.Context) []*Node {
		var out []*Node
		for _, render := range renders {
			if render == nil {
				continue
			}
			out = append(out, render(ctx)...)
		}
		return out
	}
}

// Walk visits the tree depth first. Returning false skips the children.
func Walk(nodes []*Node, visit func(*Node) bool) {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if visit(node) {
			Walk(node.Children, visit)
		}
	}
}

// Find returns the first node bound to path.
func Find(nodes []*Node, path fieldpath.Path) *Node {
	var found *Node
	Walk(nodes, func(node *Node) bool {
		if found != nil {
			return false
		}
		if node.Name != nil && fieldpath.Equal(node.Name, path) && node.Kind != KindItem {
			found = node
			return false
		}
		return true
	})
	return found
}

// Fields returns every field node in document order.
func Fields(nodes []*Node) []*Node {
	var out []*Node
	Walk(nodes, func(node *Node) bool {
		if node.Kind == KindField {
			out = append(out, node)
		}
		return true
	})
	return out
}
