package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden input emitted alongside the bound controls.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken carries a CSRF token under the input name the backend expects.
func CSRFToken(name, token string) HiddenField { return Hidden(name, token) }

// VersionField carries a version for optimistic locking.
func VersionField(name string, version any) HiddenField { return Hidden(name, version) }

// MethodOverride returns the _method field browsers need to submit verbs
// other than GET and POST, and false when no override is needed.
func MethodOverride(method string) (HiddenField, bool) {
	switch strings.ToUpper(method) {
	case "", "GET", "POST":
		return HiddenField{}, false
	}
	return Hidden("_method", strings.ToUpper(method)), true
}

// SortedHiddenFields drops unnamed fields, lets later fields win on name
// collisions and sorts by name.
func SortedHiddenFields(fields ...HiddenField) []HiddenField {
	byName := make(map[string]string, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		byName[name] = field.Value
	}
	if len(byName) == 0 {
		return nil
	}
	out := make([]HiddenField, 0, len(byName))
	for name, value := range byName {
		out = append(out, HiddenField{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
