// Package shape derives the path universe of a value shape: every path that
// is statically valid for a root type or schema, and the entry (kind, Go
// type, schema node) reachable at each of them.
//
// Go has no compile-time path types, so the universe is built once at run
// time by introspecting a reflect.Type (Of, Derive) or a schema IR node
// (FromSchema). Lookups are checked at run time only.
//
// Arrays contribute two members per level: the array path itself and the
// wildcard item path (`[..., fieldpath.Any]`). Arrays nested directly in
// arrays are supported one level deep: the inner array appears as the item
// entry, but no paths are derived into its own items.
package shape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// Kind classifies the value stored at a path.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindMap     Kind = "map"
	KindAny     Kind = "any"
)

// IsLeaf reports whether the kind has no derived sub-paths.
func (k Kind) IsLeaf() bool {
	return k != KindObject && k != KindArray
}

// ErrCyclicShape is returned when a type refers back to itself.
var ErrCyclicShape = errors.New("shape: cyclic shapes are not supported")

// Universe is the set of valid path patterns of a root shape.
type Universe struct {
	root    Entry
	entries []Entry
	index   map[string]int
}

func newUniverse(root Entry) *Universe {
	return &Universe{root: root, index: make(map[string]int)}
}

func (u *Universe) add(entry Entry) {
	key := patternKey(entry.Path)
	if _, exists := u.index[key]; exists {
		return
	}
	u.index[key] = len(u.entries)
	u.entries = append(u.entries, entry)
}

// Root returns the entry of the empty path.
func (u *Universe) Root() Entry {
	if u == nil {
		return Entry{Kind: KindAny}
	}
	return u.root
}

// Paths returns every non-root pattern in derivation order (parents before
// children, declaration order among siblings).
func (u *Universe) Paths() []fieldpath.Path {
	if u == nil {
		return nil
	}
	out := make([]fieldpath.Path, len(u.entries))
	for i, entry := range u.entries {
		out[i] = entry.Path
	}
	return out
}

// Entries returns a copy of every non-root entry in derivation order.
func (u *Universe) Entries() []Entry {
	if u == nil {
		return nil
	}
	return append([]Entry(nil), u.entries...)
}

// Lookup resolves a concrete (or pattern) path to its entry. Index segments
// match the wildcard position of the universe.
func (u *Universe) Lookup(path fieldpath.Path) (Entry, bool) {
	if u == nil {
		return Entry{}, false
	}
	if len(path) == 0 {
		return u.root, true
	}
	idx, ok := u.index[patternKey(path)]
	if !ok {
		return Entry{}, false
	}
	return u.entries[idx], true
}

// Contains reports whether path is valid for the root shape.
func (u *Universe) Contains(path fieldpath.Path) bool {
	_, ok := u.Lookup(path)
	return ok
}

// Item returns the item entry of an array path.
func (u *Universe) Item(path fieldpath.Path) (Entry, bool) {
	entry, ok := u.Lookup(path)
	if !ok || entry.Kind != KindArray {
		return Entry{}, false
	}
	return u.Lookup(path.Append(fieldpath.Any))
}

// Children returns the direct child entries of path.
func (u *Universe) Children(path fieldpath.Path) []Entry {
	if u == nil {
		return nil
	}
	pattern := path.Pattern()
	var out []Entry
	for _, entry := range u.entries {
		if len(entry.Path) == len(pattern)+1 && fieldpath.HasPrefix(entry.Path, pattern) {
			out = append(out, entry)
		}
	}
	return out
}

// Leaves returns the entries that hold scalar values, skipping those that
// live under an array item (they need a concrete index to be addressed).
func (u *Universe) Leaves() []Entry {
	if u == nil {
		return nil
	}
	var out []Entry
	for _, entry := range u.entries {
		if !entry.Kind.IsLeaf() || hasWildcard(entry.Path) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Check verifies that value conforms to the entry at path. Nil values are
// accepted as absent optional branches.
func (u *Universe) Check(path fieldpath.Path, value any) error {
	entry, ok := u.Lookup(path)
	if !ok {
		return fmt.Errorf("shape: path %q is not part of the universe", path.String())
	}
	return entry.Accepts(value)
}

func hasWildcard(path fieldpath.Path) bool {
	for _, seg := range path {
		if seg.IsAny() {
			return true
		}
	}
	return false
}

func patternKey(path fieldpath.Path) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteByte(0)
		if seg.IsIndex() || seg.IsAny() {
			b.WriteByte('#')
			continue
		}
		b.WriteByte('k')
		b.WriteString(seg.Name())
	}
	return b.String()
}
