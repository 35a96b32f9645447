package shape

import (
	"fmt"
	"math"
	"reflect"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// Entry describes the value reachable at a universe path.
type Entry struct {
	// Path is the pattern; array positions hold fieldpath.Any.
	Path fieldpath.Path
	Kind Kind
	// Type is set when the universe was derived from a Go type.
	Type reflect.Type
	// Schema is set when the universe was derived from a schema node.
	Schema *schema.Schema
	// Optional is true when the value may be absent (pointer, omitempty or
	// not listed as required).
	Optional bool
	// Name is the last key segment, or "" for wildcard items and the root.
	Name string
}

// Accepts reports whether value conforms to the entry's kind (and Go type,
// when known). Nil is always accepted.
func (e Entry) Accepts(value any) error {
	if value == nil {
		return nil
	}
	if e.Type != nil {
		rt := reflect.TypeOf(value)
		if rt.AssignableTo(e.Type) || (e.Type.Kind() == reflect.Pointer && rt.AssignableTo(e.Type.Elem())) {
			return nil
		}
	}
	if kindAccepts(e.Kind, value) {
		return nil
	}
	return fmt.Errorf("shape: value at %q: want %s, got %T", e.Path.String(), e.Kind, value)
}

func kindAccepts(kind Kind, value any) bool {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch kind {
	case KindAny:
		return true
	case KindString:
		return rv.Kind() == reflect.String
	case KindBoolean:
		return rv.Kind() == reflect.Bool
	case KindInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return f == math.Trunc(f)
		}
		return false
	case KindNumber:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	case KindObject, KindMap:
		return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct
	case KindArray:
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	default:
		return false
	}
}
