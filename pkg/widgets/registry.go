// Package widgets picks the control a bound node renders with, from the
// node's shape entry and control hints.
package widgets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/shape"
	"github.com/goliatone/go-formbind/pkg/view"
)

// Built-in widget identifiers.
const (
	WidgetToggle     = "toggle"
	WidgetSelect     = "select"
	WidgetChips      = "chips"
	WidgetCodeEditor = "code-editor"
	WidgetJSONEditor = "json-editor"
	WidgetKeyValue   = "key-value"
	WidgetRepeater   = "repeater"
)

// HintKey is the control prop holding an explicit widget name.
const HintKey = "widget"

// Field is what a matcher sees: the shape of the bound path and the
// control hints passed to the binding.
type Field struct {
	Kind   shape.Kind
	Schema *schema.Schema
	Hints  map[string]any
	// List is set for nodes rendered by a list binding.
	List bool
}

// FieldFor describes node using the universe entry of its path. Without a
// universe the kind falls back to the node type.
func FieldFor(node *view.Node, universe *shape.Universe) Field {
	field := Field{Kind: shape.Kind(node.Type), Hints: node.Props, List: node.Kind == view.KindList}
	if universe == nil {
		return field
	}
	if entry, ok := universe.Lookup(node.Name); ok {
		field.Kind = entry.Kind
		field.Schema = entry.Schema
	}
	return field
}

func (f Field) enum() []any {
	if f.Schema == nil {
		return nil
	}
	return f.Schema.Enum
}

func (f Field) format() string {
	if f.Schema == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(f.Schema.Format))
}

// Matcher decides whether a widget handles the field.
type Matcher func(field Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets by explicit hint or registered matchers. Higher
// priority wins; ties fall back to registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher. The latest registration of a name wins ties.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{name: trimmed, priority: priority, match: matcher, order: len(r.rules)})
}

// Resolve returns the widget for field. An explicit hint is honoured before
// matchers run.
func (r *Registry) Resolve(field Field) (string, bool) {
	if explicit := explicitWidget(field.Hints); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order > rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate sets the widget prop on every field and list node of the tree.
// Existing hints are kept.
func (r *Registry) Decorate(nodes []*view.Node, universe *shape.Universe) {
	view.Walk(nodes, func(node *view.Node) bool {
		if node.Kind != view.KindField && node.Kind != view.KindList {
			return true
		}
		if widget, ok := r.Resolve(FieldFor(node, universe)); ok {
			if node.Props == nil {
				node.Props = make(map[string]any)
			}
			node.Props[HintKey] = widget
		}
		return true
	})
}

func explicitWidget(hints map[string]any) string {
	if hints == nil {
		return ""
	}
	raw, ok := hints[HintKey]
	if !ok || raw == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetToggle, 90, func(field Field) bool {
		return field.Kind == shape.KindBoolean
	})

	r.Register(WidgetChips, 80, func(field Field) bool {
		if field.Kind != shape.KindArray || field.Schema == nil || field.Schema.Items == nil {
			return false
		}
		return len(field.Schema.Items.Enum) > 0
	})

	r.Register(WidgetSelect, 70, func(field Field) bool {
		return field.Kind.IsLeaf() && len(field.enum()) > 0
	})

	r.Register(WidgetCodeEditor, 60, func(field Field) bool {
		if field.Kind != shape.KindString {
			return false
		}
		switch field.format() {
		case "json", "yaml", "toml":
			return true
		}
		return false
	})

	r.Register(WidgetJSONEditor, 50, func(field Field) bool {
		if field.Kind == shape.KindMap {
			return true
		}
		return field.Kind == shape.KindObject && field.Schema != nil && len(field.Schema.Properties) == 0
	})

	r.Register(WidgetKeyValue, 40, func(field Field) bool {
		if field.Kind != shape.KindArray || field.Schema == nil || field.Schema.Items == nil {
			return false
		}
		items := field.Schema.Items
		return items.ResolvedType() == schema.TypeObject && len(items.Properties) == 0
	})

	r.Register(WidgetRepeater, 10, func(field Field) bool {
		return field.List
	})
}
