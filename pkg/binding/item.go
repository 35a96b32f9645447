package binding

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/scope"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/view"
)

// ItemProps configures a field binding.
type ItemProps struct {
	// Path is nil, a scalar segment or a sequence of segments.
	Path      any
	Rules     []store.Rule
	Normalize NormalizeFunc
	// Initial is written when the field mounts and no value is stored.
	Initial any
	// Control is passed through to the rendered node untouched.
	Control  map[string]any
	Children view.Render
}

// Item binds one path to one control. Without a path it renders a layout
// group and registers nothing. Outside inherit mode the resolved path
// becomes the scope prefix of the children.
func (in *Instance) Item(props ItemProps) view.Render {
	return func(ctx context.Context) []*view.Node {
		declared := fieldpath.Normalize(props.Path)
		if len(declared) == 0 {
			return []*view.Node{{
				Kind:     view.KindGroup,
				Props:    cloneProps(props.Control),
				Children: renderChildren(ctx, props.Children),
			}}
		}

		c := in.core
		full := in.Resolve(ctx, declared)
		c.checkPath(full)

		normalize := props.Normalize
		if normalize == nil {
			normalize = c.normalize
		}
		required := c.isRequired(full)
		field := c.store.Register(ctx, full, store.FieldOptions{
			Rules:     c.rules(full, props.Rules),
			Normalize: normalize,
			Initial:   props.Initial,
			Required:  required,
		})

		childCtx := ctx
		if !in.inherit {
			childCtx = scope.Provide(ctx, full)
		}
		return []*view.Node{{
			Kind:     view.KindField,
			Key:      field.Path().String(),
			Name:     field.Path(),
			Type:     c.kindOf(full),
			Value:    field.Value(),
			Errors:   field.Errors(),
			Required: required,
			Props:    cloneProps(props.Control),
			Children: renderChildren(childCtx, props.Children),
		}}
	}
}

func renderChildren(ctx context.Context, children view.Render) []*view.Node {
	if children == nil {
		return nil
	}
	return children(ctx)
}

func cloneProps(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
