package orchestrator

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formbind/pkg/binding"
	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/view"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

// Schema extensions read into control props.
const (
	ExtWidget      = "x-formbind-widget"
	ExtPlaceholder = "x-formbind-placeholder"
	ExtLabelKey    = "x-formbind-label-key"
	ExtMultiline   = "x-formbind-multiline"
	ExtHidden      = "x-formbind-hidden"
)

// Layout binds every property of root in PropertyNames order. Objects with
// properties become field groups, arrays of objects or free scalars become
// lists, everything else binds as a single control.
func Layout(in *binding.Instance, root schema.Schema) view.Render {
	return func(ctx context.Context) []*view.Node {
		return properties(ctx, in, fieldpath.Path{}, root)
	}
}

func properties(ctx context.Context, in *binding.Instance, prefix fieldpath.Path, node schema.Schema) []*view.Node {
	var out []*view.Node
	for _, name := range node.PropertyNames() {
		child := node.Properties[name]
		if hidden, _ := child.Extensions[ExtHidden].(bool); hidden {
			continue
		}
		out = append(out, bindProperty(ctx, in, prefix.Append(fieldpath.Key(name)), name, child)...)
	}
	return out
}

func bindProperty(ctx context.Context, in *binding.Instance, path fieldpath.Path, name string, node schema.Schema) []*view.Node {
	control := ControlProps(name, node)
	switch {
	case node.ResolvedType() == schema.TypeObject && len(node.Properties) > 0:
		return in.Item(binding.ItemProps{
			Path:    path,
			Control: control,
			Children: func(ctx context.Context) []*view.Node {
				return properties(ctx, in, path, node)
			},
		})(ctx)

	case isRepeated(node):
		items := *node.Items
		return in.List(binding.ListProps{
			Path:    path,
			Control: control,
			Initial: defaultList(node.Default),
			Each: func(ctx context.Context, item binding.ListItem, _ binding.ListOps) []*view.Node {
				if items.ResolvedType() == schema.TypeObject {
					return properties(ctx, in, item.Prefix(), items)
				}
				return in.Item(binding.ItemProps{
					Path:    item.Prefix(),
					Control: ControlProps(name, items),
				})(ctx)
			},
		})(ctx)
	}

	return in.Item(binding.ItemProps{
		Path:    path,
		Control: control,
		Initial: node.Default,
	})(ctx)
}

// isRepeated reports arrays rendered item by item. Enum arrays bind as one
// multi-choice control and free-form objects as a key-value control.
func isRepeated(node schema.Schema) bool {
	if node.ResolvedType() != schema.TypeArray || node.Items == nil {
		return false
	}
	items := node.Items
	switch items.ResolvedType() {
	case schema.TypeObject:
		return len(items.Properties) > 0
	case schema.TypeArray, "":
		return false
	}
	return len(items.Enum) == 0
}

func defaultList(value any) []any {
	list, _ := value.([]any)
	return list
}

// ControlProps derives the control props of a property from its schema.
func ControlProps(name string, node schema.Schema) map[string]any {
	props := map[string]any{"label": labelFor(name, node)}
	if node.Description != "" {
		props["description"] = node.Description
	}
	if node.Format != "" {
		props["format"] = node.Format
	}
	if options := optionsFor(node); len(options) > 0 {
		props["options"] = options
	}
	if widget, ok := node.Extensions[ExtWidget].(string); ok && widget != "" {
		props[widgets.HintKey] = widget
	}
	if placeholder, ok := node.Extensions[ExtPlaceholder].(string); ok && placeholder != "" {
		props["placeholder"] = placeholder
	}
	if key, ok := node.Extensions[ExtLabelKey].(string); ok && key != "" {
		props["labelKey"] = key
	}
	if multiline, ok := node.Extensions[ExtMultiline].(bool); ok && multiline {
		props["multiline"] = true
	}
	return props
}

func optionsFor(node schema.Schema) []any {
	if len(node.Enum) > 0 {
		return append([]any(nil), node.Enum...)
	}
	if node.ResolvedType() == schema.TypeArray && node.Items != nil && len(node.Items.Enum) > 0 {
		return append([]any(nil), node.Items.Enum...)
	}
	return nil
}

// labelFor prefers the schema title and otherwise humanizes the property
// name: "first_name" and "firstName" both read "First Name".
func labelFor(name string, node schema.Schema) string {
	if title := strings.TrimSpace(node.Title); title != "" {
		return title
	}
	if name == "" {
		return ""
	}
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case i > 0 && isUpper(r) && !isUpper(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	// a Caser carries state, so one per call
	return cases.Title(language.English).String(strings.ToLower(strings.Join(words, " ")))
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
