package render

import (
	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/view"
)

// Subset returns a copy of nodes keeping only the fields whose path matches
// one of the patterns (fieldpath.Any matches any index) or lies below a
// matching path. Groups, lists and items survive while they still contain a
// kept field. No patterns keeps everything.
func Subset(nodes []*view.Node, patterns ...fieldpath.Path) []*view.Node {
	if len(patterns) == 0 {
		return nodes
	}
	return subset(nodes, patterns, false)
}

func subset(nodes []*view.Node, patterns []fieldpath.Path, inside bool) []*view.Node {
	var out []*view.Node
	for _, node := range nodes {
		if node == nil {
			continue
		}
		keep := inside || ((node.Kind == view.KindField || node.Kind == view.KindList) && matchesAny(patterns, node.Name))
		children := subset(node.Children, patterns, keep)
		if !keep && len(children) == 0 {
			continue
		}
		clone := *node
		clone.Children = children
		out = append(out, &clone)
	}
	return out
}

func matchesAny(patterns []fieldpath.Path, path fieldpath.Path) bool {
	for _, pattern := range patterns {
		if fieldpath.Matches(pattern, path) {
			return true
		}
	}
	return false
}
