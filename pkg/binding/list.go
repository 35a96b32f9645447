package binding

import (
	"context"
	"slices"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/scope"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/view"
)

// ListOps mutates the bound array.
type ListOps interface {
	Add(defaults ...any)
	Remove(index int)
	Move(from, to int)
}

// ListMeta is the list-level state.
type ListMeta struct {
	Errors []string
}

// ListItem is the handle of one array element.
type ListItem struct {
	Key   string
	Index int
	list  fieldpath.Path
}

// PathKey makes the handle usable as a path segment: it stands for its
// index, so Of("rows", item, "x") equals item.Name("x").
func (it ListItem) PathKey() any { return it.Index }

// Prefix returns [...list, index].
func (it ListItem) Prefix() fieldpath.Path {
	return it.list.Append(fieldpath.Index(it.Index))
}

// Name returns [...list, index, ...rel]. It is the same path as composing
// the list path, the index and rel by hand.
func (it ListItem) Name(rel any) fieldpath.Path {
	return fieldpath.Compose(it.Prefix(), fieldpath.Normalize(rel))
}

// Scope provides the item prefix to everything rendered with the returned
// context.
func (it ListItem) Scope(ctx context.Context) context.Context {
	return scope.Provide(ctx, it.Prefix())
}

// ListProps configures a list binding.
type ListProps struct {
	Path any
	// Initial seeds the array when the store holds no value.
	Initial []any
	Rules   []store.Rule
	// Children renders the whole content from the captured items. Its
	// context carries the list path as the scope prefix, so inherit-mode
	// bindings inside resolve relative to the list.
	Children func(ctx context.Context, items []ListItem, ops ListOps, meta ListMeta) []*view.Node
	// Each renders one item under its own scope prefix.
	Each    func(ctx context.Context, item ListItem, ops ListOps) []*view.Node
	Control map[string]any
}

// captured is the (items, ops, meta) triple copied out of the array
// primitive by a post-render effect.
type captured struct {
	items []store.Item
	ops   ListOps
	meta  ListMeta
}

func (c captured) same(other captured) bool {
	return c.ops == other.ops &&
		slices.Equal(c.items, other.items) &&
		slices.Equal(c.meta.Errors, other.meta.Errors)
}

// List binds an array path. The array primitive is rendered only to capture
// its items, operations and meta; the capture lands in local state through
// an effect and the content is rendered from it outside the primitive, so
// item bindings use full paths that the primitive never prefixes. Content
// lags one pass behind the primitive: a freshly added item appears on the
// next pass.
func (in *Instance) List(props ListProps) view.Render {
	return func(ctx context.Context) []*view.Node {
		declared := fieldpath.Normalize(props.Path)
		if len(declared) == 0 {
			panic(ErrMissingListPath)
		}

		c := in.core
		full := in.Resolve(ctx, declared)
		c.checkPath(full)

		var initial any
		if props.Initial != nil {
			initial = append([]any{}, props.Initial...)
		}
		required := c.isRequired(full)
		c.store.Register(ctx, full, store.FieldOptions{
			Rules:    c.rules(full, props.Rules),
			Initial:  initial,
			Required: required,
		})

		cell := view.State(ctx, "binding/list"+full.Pointer(), captured{})
		array := c.store.ArrayField(full)
		array.Render(ctx, func(_ context.Context, items []store.Item, ops *store.ArrayOps, meta store.ArrayMeta) []*view.Node {
			next := captured{items: items, ops: ops, meta: ListMeta{Errors: meta.Errors}}
			view.Effect(ctx, func() {
				if !cell.Get().same(next) {
					cell.Set(next)
				}
			})
			return nil
		})

		snapshot := cell.Get()
		ops := snapshot.ops
		if ops == nil {
			ops = array.Ops()
		}
		items := make([]ListItem, len(snapshot.items))
		for i, item := range snapshot.items {
			items[i] = ListItem{Key: item.Key, Index: item.Index, list: full}
		}

		var content []*view.Node
		if props.Each != nil {
			for _, item := range items {
				content = append(content, &view.Node{
					Kind:     view.KindItem,
					Key:      item.Key,
					Name:     item.Prefix(),
					Children: props.Each(item.Scope(ctx), item, ops),
				})
			}
		}
		if props.Children != nil {
			content = append(content, props.Children(scope.Provide(ctx, full), items, ops, snapshot.meta)...)
		}

		return []*view.Node{{
			Kind:     view.KindList,
			Key:      full.String(),
			Name:     full,
			Type:     c.kindOf(full),
			Errors:   snapshot.meta.Errors,
			Required: required,
			Props:    cloneProps(props.Control),
			Children: content,
		}}
	}
}
