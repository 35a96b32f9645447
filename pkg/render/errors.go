package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/shape"
	"github.com/goliatone/go-formbind/pkg/store"
)

// ErrorMapping splits a server error payload into field messages addressed
// by bound paths and form-level messages.
type ErrorMapping struct {
	Fields []store.FieldError
	Form   []string
}

// Known answers whether a concrete path can carry field errors. Mapping
// falls back to the longest known prefix of each payload path.
type Known func(path fieldpath.Path) bool

// KnownFields accepts the paths of the fields mounted in s.
func KnownFields(s *store.Store) Known {
	return func(path fieldpath.Path) bool {
		_, ok := s.Field(path)
		return ok
	}
}

// KnownUniverse accepts every path of the universe.
func KnownUniverse(u *shape.Universe) Known {
	return func(path fieldpath.Path) bool {
		return u != nil && u.Contains(path)
	}
}

// MapErrorPayload maps payload keys (JSON pointers, dotted or bracketed
// paths, optionally wrapped in body/data/attributes) onto known paths.
// Messages whose path maps nowhere become form-level so nothing is lost.
func MapErrorPayload(known Known, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	if len(payload) == 0 {
		return mapping
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	index := make(map[string]int)
	for _, raw := range keys {
		messages := normalizeMessages(payload[raw])
		if len(messages) == 0 {
			continue
		}
		path, ok := mapErrorPath(raw, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		key := path.Pointer()
		if at, seen := index[key]; seen {
			mapping.Fields[at].Messages = normalizeMessages(append(mapping.Fields[at].Messages, messages...))
			continue
		}
		index[key] = len(mapping.Fields)
		mapping.Fields = append(mapping.Fields, store.FieldError{Path: path, Messages: messages})
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// ApplyErrors maps payload against the fields mounted in s, records the
// field messages in s and returns the form-level messages.
func ApplyErrors(s *store.Store, payload map[string][]string) []string {
	mapping := MapErrorPayload(KnownFields(s), payload)
	s.SetFieldErrors(mapping.Fields)
	return mapping.Form
}

// MergeFormErrors concatenates message lists, trimming and dropping
// duplicates while keeping order.
func MergeFormErrors(existing []string, extras ...string) []string {
	return normalizeMessages(append(append([]string(nil), existing...), extras...))
}

func normalizeMessages(messages []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func mapErrorPath(raw string, known Known) (fieldpath.Path, bool) {
	if isFormLevelKey(raw) || known == nil {
		return nil, false
	}
	path := fieldpath.Parse(raw)
	if len(path) == 0 {
		return nil, false
	}
	var best fieldpath.Path
	for _, candidate := range []fieldpath.Path{path, dropWrappers(path)} {
		if match := longestKnownPrefix(candidate, known); len(match) > len(best) {
			best = match
		}
	}
	return best, len(best) > 0
}

var wrapperKeys = map[string]struct{}{
	"body": {}, "request": {}, "payload": {}, "data": {}, "attributes": {},
}

func dropWrappers(path fieldpath.Path) fieldpath.Path {
	for len(path) > 0 {
		first := path[0]
		if !first.IsKey() {
			break
		}
		if _, ok := wrapperKeys[strings.ToLower(first.Name())]; !ok {
			break
		}
		path = path[1:]
	}
	return path
}

func longestKnownPrefix(path fieldpath.Path, known Known) fieldpath.Path {
	for end := len(path); end > 0; end-- {
		if known(path[:end]) {
			return path[:end].Clone()
		}
	}
	return nil
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	}
	return false
}
