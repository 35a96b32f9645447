package store

import (
	"context"
	"strconv"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/view"
)

// Item is one element of an array field: a key that survives reordering
// and its current index.
type Item struct {
	Key   string
	Index int
}

// PathKey stands for the item's index when the item is used as a path
// segment.
func (it Item) PathKey() any { return it.Index }

// ArrayMeta carries the list-level state of an array field.
type ArrayMeta struct {
	Errors []string
}

type arrayState struct {
	keys []string
	next int
	ops  *ArrayOps
}

// ArrayField is the dynamic-array primitive for the value at a path.
type ArrayField struct {
	store *Store
	path  fieldpath.Path
}

// ArrayField returns the primitive for the array stored at path.
func (s *Store) ArrayField(path fieldpath.Path) *ArrayField {
	return &ArrayField{store: s, path: path.Clone()}
}

// Path returns the array path.
func (a *ArrayField) Path() fieldpath.Path { return a.path }

// state returns the key bookkeeping for the array, reconciled with the
// current value length. Callers hold the store lock.
func (a *ArrayField) state() (*arrayState, []any) {
	s := a.store
	key := pathKey(a.path)
	st, ok := s.arrays[key]
	if !ok {
		st = &arrayState{}
		st.ops = &ArrayOps{field: a}
		s.arrays[key] = st
	}
	raw, _ := getIn(s.values, a.path)
	list, _ := raw.([]any)
	for len(st.keys) < len(list) {
		st.keys = append(st.keys, "k"+strconv.Itoa(st.next))
		st.next++
	}
	if len(st.keys) > len(list) {
		st.keys = st.keys[:len(list)]
	}
	return st, list
}

// Items returns the current items.
func (a *ArrayField) Items() []Item {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	st, _ := a.state()
	items := make([]Item, len(st.keys))
	for i, key := range st.keys {
		items[i] = Item{Key: key, Index: i}
	}
	return items
}

// Ops returns the operations handle. It is the same value for the lifetime
// of the array state.
func (a *ArrayField) Ops() *ArrayOps {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	st, _ := a.state()
	return st.ops
}

// Meta returns the list-level errors.
func (a *ArrayField) Meta() ArrayMeta {
	return ArrayMeta{Errors: a.store.Errors(a.path)}
}

// Render calls fn with the current items, operations and meta. Fields
// registered with the context passed to fn are prefixed with the array path.
func (a *ArrayField) Render(ctx context.Context, fn func(ctx context.Context, items []Item, ops *ArrayOps, meta ArrayMeta) []*view.Node) []*view.Node {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(withRegistrationPrefix(ctx, a.path), a.Items(), a.Ops(), a.Meta())
}

// ArrayOps mutates an array field.
type ArrayOps struct {
	field *ArrayField
}

// Add appends one item per default value, or a single empty object when
// none is given.
func (o *ArrayOps) Add(defaults ...any) {
	if len(defaults) == 0 {
		defaults = []any{map[string]any{}}
	}
	o.mutate(func(st *arrayState, list []any) []any {
		for _, value := range defaults {
			list = append(list, deepCopy(value))
			st.keys = append(st.keys, "k"+strconv.Itoa(st.next))
			st.next++
		}
		return list
	})
}

// Remove deletes the item at index; later items shift down. Out of range
// indices are ignored.
func (o *ArrayOps) Remove(index int) {
	o.mutate(func(st *arrayState, list []any) []any {
		if index < 0 || index >= len(list) {
			return nil
		}
		st.keys = append(st.keys[:index:index], st.keys[index+1:]...)
		return append(list[:index:index], list[index+1:]...)
	})
}

// Move relocates the item at from to position to.
func (o *ArrayOps) Move(from, to int) {
	o.mutate(func(st *arrayState, list []any) []any {
		if from < 0 || from >= len(list) || to < 0 || to >= len(list) || from == to {
			return nil
		}
		list = move(list, from, to)
		st.keys = move(st.keys, from, to)
		return list
	})
}

func move[E any](list []E, from, to int) []E {
	out := make([]E, 0, len(list))
	value := list[from]
	for i, item := range list {
		if i == from {
			continue
		}
		if len(out) == to {
			out = append(out, value)
		}
		out = append(out, item)
	}
	if len(out) == to {
		out = append(out, value)
	}
	return out
}

// mutate applies fn to a copy of the list; a nil result means no change.
func (o *ArrayOps) mutate(fn func(st *arrayState, list []any) []any) {
	a := o.field
	s := a.store
	s.mu.Lock()
	st, current := a.state()
	list := fn(st, append([]any(nil), current...))
	if list == nil {
		s.mu.Unlock()
		return
	}
	updated, err := setIn(s.values, a.path, list)
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.values = updated.(map[string]any)
	s.clearErrorsLocked(a.path)
	s.mu.Unlock()
	s.publish(Change{Path: a.path.Clone(), Value: deepCopy(list)})
}
