package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// pathKey encodes a path so that key "0" and index 0 never collide.
func pathKey(path fieldpath.Path) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteByte(0)
		switch {
		case seg.IsIndex():
			b.WriteByte('#')
			b.WriteString(strconv.Itoa(seg.Pos()))
		case seg.IsAny():
			b.WriteByte('*')
		default:
			b.WriteByte('k')
			b.WriteString(seg.Name())
		}
	}
	return b.String()
}

func getIn(root any, path fieldpath.Path) (any, bool) {
	current := root
	for _, seg := range path {
		switch node := current.(type) {
		case map[string]any:
			if !seg.IsKey() {
				return nil, false
			}
			next, ok := node[seg.Name()]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx := seg.Pos()
			if idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setIn writes value at path below node, creating maps for key segments and
// slices for index segments, and returns the updated node.
func setIn(node any, path fieldpath.Path, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	seg, rest := path[0], path[1:]
	switch {
	case seg.IsKey():
		m, ok := node.(map[string]any)
		if !ok || m == nil {
			m = make(map[string]any)
		}
		child, err := setIn(m[seg.Name()], rest, value)
		if err != nil {
			return nil, err
		}
		m[seg.Name()] = child
		return m, nil
	case seg.IsIndex():
		idx := seg.Pos()
		list, _ := node.([]any)
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		child, err := setIn(list[idx], rest, value)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	default:
		return nil, fmt.Errorf("store: cannot write through wildcard segment")
	}
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}

func cloneValues(src map[string]any) map[string]any {
	if len(src) == 0 {
		return make(map[string]any)
	}
	return deepCopy(src).(map[string]any)
}

// IsEmpty reports whether value counts as "no value": nil, "", or an empty
// slice or map.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}
