package shape

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// Of derives the universe of T. It panics on cyclic types; use Derive to get
// the error instead.
func Of[T any]() *Universe {
	u, err := Derive(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		panic(err)
	}
	return u
}

// FromType is the panicking form of Derive.
func FromType(t reflect.Type) *Universe {
	u, err := Derive(t)
	if err != nil {
		panic(err)
	}
	return u
}

// Derive walks a Go type and records every path reachable through exported
// struct fields (named by their json tag) and slice items.
func Derive(t reflect.Type) (*Universe, error) {
	if t == nil {
		return newUniverse(Entry{Kind: KindAny, Path: fieldpath.Path{}}), nil
	}
	root := typeEntry(fieldpath.Path{}, t, "", false)
	u := newUniverse(root)
	w := typeWalker{universe: u, visiting: map[reflect.Type]bool{}}
	if err := w.walk(fieldpath.Path{}, t, false); err != nil {
		return nil, err
	}
	return u, nil
}

type typeWalker struct {
	universe *Universe
	visiting map[reflect.Type]bool
}

// walk records the children of the value of type t found at path. inItem is
// true when t is the item type of an array nested in another array.
func (w typeWalker) walk(path fieldpath.Path, t reflect.Type, inItem bool) error {
	t = deref(t)
	switch kindOfType(t) {
	case KindObject:
		return w.enter(path, t)
	case KindArray:
		if inItem {
			return nil
		}
		item := path.Append(fieldpath.Any)
		elem := t.Elem()
		w.universe.add(typeEntry(item, elem, "", false))
		nested := kindOfType(deref(elem)) == KindArray
		return w.walk(item, elem, nested)
	}
	return nil
}

// enter records the fields of struct t unless t is already being walked,
// directly or through an embedding.
func (w typeWalker) enter(path fieldpath.Path, t reflect.Type) error {
	if w.visiting[t] {
		return fmt.Errorf("%w: %s at %q", ErrCyclicShape, t, path.String())
	}
	w.visiting[t] = true
	defer delete(w.visiting, t)
	return w.fields(path, t)
}

func (w typeWalker) fields(path fieldpath.Path, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}
		if field.Anonymous && name == "" {
			embedded := deref(field.Type)
			if embedded.Kind() == reflect.Struct && kindOfType(embedded) == KindObject {
				if err := w.enter(path, embedded); err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		child := path.Append(fieldpath.Key(name))
		optional := omitEmpty || field.Type.Kind() == reflect.Pointer
		w.universe.add(typeEntry(child, field.Type, name, optional))
		if err := w.walk(child, field.Type, false); err != nil {
			return err
		}
	}
	return nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func typeEntry(path fieldpath.Path, t reflect.Type, name string, optional bool) Entry {
	return Entry{
		Path:     path,
		Kind:     kindOfType(deref(t)),
		Type:     t,
		Optional: optional,
		Name:     name,
	}
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func kindOfType(t reflect.Type) Kind {
	if t == nil {
		return KindAny
	}
	if t == timeType {
		return KindString
	}
	ptr := reflect.PointerTo(t)
	if t.Implements(jsonMarshalerType) || ptr.Implements(jsonMarshalerType) {
		return KindAny
	}
	if t.Implements(textMarshalerType) || ptr.Implements(textMarshalerType) {
		return KindString
	}
	switch t.Kind() {
	case reflect.Struct:
		return KindObject
	case reflect.Map:
		return KindMap
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindString
		}
		return KindArray
	case reflect.Array:
		return KindArray
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger
	case reflect.Float32, reflect.Float64:
		return KindNumber
	default:
		return KindAny
	}
}

// FromSchema derives the universe described by a schema IR node. Properties
// are visited in PropertyNames order; anything not listed as required is
// optional.
func FromSchema(root schema.Schema) *Universe {
	node := root
	u := newUniverse(schemaEntry(fieldpath.Path{}, &node, "", false))
	walkSchema(u, fieldpath.Path{}, &node, false)
	return u
}

func walkSchema(u *Universe, path fieldpath.Path, node *schema.Schema, inItem bool) {
	switch kindOfSchema(node) {
	case KindObject:
		for _, name := range node.PropertyNames() {
			prop := node.Properties[name]
			child := path.Append(fieldpath.Key(name))
			u.add(schemaEntry(child, &prop, name, !node.IsRequired(name)))
			walkSchema(u, child, &prop, false)
		}
	case KindArray:
		if inItem {
			return
		}
		item := path.Append(fieldpath.Any)
		elem := node.Items
		if elem == nil {
			elem = &schema.Schema{}
		}
		u.add(schemaEntry(item, elem, "", false))
		walkSchema(u, item, elem, kindOfSchema(elem) == KindArray)
	}
}

func schemaEntry(path fieldpath.Path, node *schema.Schema, name string, optional bool) Entry {
	return Entry{
		Path:     path,
		Kind:     kindOfSchema(node),
		Schema:   node,
		Optional: optional,
		Name:     name,
	}
}

func kindOfSchema(node *schema.Schema) Kind {
	if node == nil {
		return KindAny
	}
	switch node.ResolvedType() {
	case schema.TypeObject:
		if len(node.Properties) == 0 {
			return KindMap
		}
		return KindObject
	case schema.TypeArray:
		return KindArray
	case schema.TypeString:
		return KindString
	case schema.TypeInteger:
		return KindInteger
	case schema.TypeNumber:
		return KindNumber
	case schema.TypeBoolean:
		return KindBoolean
	default:
		return KindAny
	}
}
