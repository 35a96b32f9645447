// Package fieldpath represents, normalises, compares and composes field
// paths. A Path is an ordered list of segments where each segment is a
// string key or a non-negative array index. Path universes additionally use
// the Any wildcard to stand for "every index" of an array.
//
// Paths are treated as immutable values: functions that need a different
// path return a fresh slice, except Compose which returns the relative path
// untouched when the prefix is empty so reference-based memoisation keeps
// working.
package fieldpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type segmentKind uint8

const (
	kindKey segmentKind = iota
	kindIndex
	kindAny
)

// Segment is a single path step.
type Segment struct {
	key   string
	index int
	kind  segmentKind
}

// Any is the array wildcard used by path universes.
var Any = Segment{kind: kindAny}

// Key returns a string key segment.
func Key(name string) Segment {
	return Segment{key: name, kind: kindKey}
}

// Index returns an array index segment. Negative indices are a programming
// error.
func Index(i int) Segment {
	if i < 0 {
		panic(fmt.Sprintf("fieldpath: negative index %d", i))
	}
	return Segment{index: i, kind: kindIndex}
}

// IsKey reports whether the segment is a string key.
func (s Segment) IsKey() bool { return s.kind == kindKey }

// IsIndex reports whether the segment is a concrete array index.
func (s Segment) IsIndex() bool { return s.kind == kindIndex }

// IsAny reports whether the segment is the array wildcard.
func (s Segment) IsAny() bool { return s.kind == kindAny }

// Name returns the key of a key segment and "" otherwise.
func (s Segment) Name() string { return s.key }

// Pos returns the index of an index segment and -1 otherwise.
func (s Segment) Pos() int {
	if s.kind != kindIndex {
		return -1
	}
	return s.index
}

// Value returns the scalar form: string for keys, int for indices and nil
// for the wildcard.
func (s Segment) Value() any {
	switch s.kind {
	case kindIndex:
		return s.index
	case kindAny:
		return nil
	default:
		return s.key
	}
}

func (s Segment) String() string {
	switch s.kind {
	case kindIndex:
		return strconv.Itoa(s.index)
	case kindAny:
		return "*"
	default:
		return s.key
	}
}

// Path is an ordered sequence of segments.
type Path []Segment

// Of builds a path from scalars, see Normalize.
func Of(segments ...any) Path {
	return Normalize(segments)
}

// Keyed is implemented by wrapper values that carry a segment under a key,
// such as the item handles list bindings pass to their callbacks.
type Keyed interface {
	PathKey() any
}

// Unwrap returns the key carried by a wrapper segment (a Keyed value or a
// map with a "key" entry) and returns any other value unchanged. Structs are
// never unwrapped by field name; wrappers opt in through Keyed.
func Unwrap(segment any) any {
	switch v := segment.(type) {
	case nil, string, int, Segment:
		return v
	case Keyed:
		return Unwrap(v.PathKey())
	case map[string]any:
		if key, ok := v["key"]; ok {
			return Unwrap(key)
		}
	}
	return segment
}

// Normalize converts a name-like value into a Path. It accepts nil (the
// empty path, equal to an empty sequence), a bare scalar (string, integer, Segment or wrapper) and sequences of
// those ([]any, []string, []int, []Segment, Path). A bare string is a single
// key; it is never split on dots.
func Normalize(nameLike any) Path {
	switch v := nameLike.(type) {
	case nil:
		return Path{}
	case Path:
		return v
	case []Segment:
		return Path(v)
	case []string:
		out := make(Path, 0, len(v))
		for _, key := range v {
			out = append(out, Key(key))
		}
		return out
	case []int:
		out := make(Path, 0, len(v))
		for _, idx := range v {
			out = append(out, segmentOf(idx))
		}
		return out
	case []any:
		out := make(Path, 0, len(v))
		for _, item := range v {
			out = append(out, segmentOf(item))
		}
		return out
	default:
		unwrapped := Unwrap(v)
		if seq, ok := unwrapped.([]any); ok {
			return Normalize(seq)
		}
		return Path{segmentOf(unwrapped)}
	}
}

func segmentOf(raw any) Segment {
	switch v := Unwrap(raw).(type) {
	case Segment:
		return v
	case string:
		return Key(v)
	case int:
		return intSegment(int64(v))
	case int8:
		return intSegment(int64(v))
	case int16:
		return intSegment(int64(v))
	case int32:
		return intSegment(int64(v))
	case int64:
		return intSegment(v)
	case uint:
		return uintSegment(uint64(v))
	case uint8:
		return intSegment(int64(v))
	case uint16:
		return intSegment(int64(v))
	case uint32:
		return intSegment(int64(v))
	case uint64:
		return uintSegment(v)
	case float64:
		if v >= 0 && v == float64(int64(v)) {
			return Index(int(v))
		}
		return Key(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return Key(fmt.Sprint(v))
	}
}

func intSegment(v int64) Segment {
	if v < 0 || v > math.MaxInt {
		return Key(strconv.FormatInt(v, 10))
	}
	return Index(int(v))
}

// uintSegment keeps values past the int range as string keys of their real
// value instead of wrapping them negative.
func uintSegment(v uint64) Segment {
	if v > math.MaxInt {
		return Key(strconv.FormatUint(v, 10))
	}
	return Index(int(v))
}

// Equal reports whether two paths have the same length and pairwise equal
// segments. A nil path is treated as absent and never equals anything.
func Equal(a, b Path) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EqualNames normalises both name-like values (unwrapping key wrappers) and
// compares them with Equal. Absent (nil) inputs are never equal.
func EqualNames(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	return Equal(Normalize(a), Normalize(b))
}

// Compose appends relative to prefix. When prefix is empty the relative path
// is returned as-is.
func Compose(prefix, relative Path) Path {
	if len(prefix) == 0 {
		return relative
	}
	out := make(Path, 0, len(prefix)+len(relative))
	out = append(out, prefix...)
	return append(out, relative...)
}

// HasPrefix reports whether every segment of prefix equals the matching
// leading segment of path. The empty prefix matches every path.
func HasPrefix(path, prefix Path) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Matches compares a universe pattern with a concrete path; the Any wildcard
// matches any index (or another wildcard).
func Matches(pattern, concrete Path) bool {
	if len(pattern) != len(concrete) {
		return false
	}
	for i, seg := range pattern {
		if seg.IsAny() {
			if !concrete[i].IsIndex() && !concrete[i].IsAny() {
				return false
			}
			continue
		}
		if seg != concrete[i] {
			return false
		}
	}
	return true
}

// Pattern replaces every index segment with the wildcard.
func (p Path) Pattern() Path {
	out := make(Path, len(p))
	for i, seg := range p {
		if seg.IsIndex() {
			out[i] = Any
			continue
		}
		out[i] = seg
	}
	return out
}

// Append returns a new path with segments appended.
func (p Path) Append(segments ...Segment) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Clone returns a copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path{}, p...)
}

// Parent drops the last segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// IsRoot reports whether the path has no segments.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Values returns the scalar form of each segment.
func (p Path) Values() []any {
	out := make([]any, len(p))
	for i, seg := range p {
		out[i] = seg.Value()
	}
	return out
}

// String renders the dotted form (`emails.0.email`).
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Pointer renders an RFC 6901 JSON Pointer. The root renders as "".
func (p Path) Pointer() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		b.WriteString(escapePointer(seg.String()))
	}
	return b.String()
}

// MarshalJSON emits the scalar array form, e.g. ["emails",0,"email"].
func (p Path) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, seg := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		switch {
		case seg.IsIndex():
			b.WriteString(strconv.Itoa(seg.index))
		case seg.IsAny():
			b.WriteString(`"*"`)
		default:
			b.WriteString(strconv.Quote(seg.key))
		}
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}

func escapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}
