package tui

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// optionStrings reads the "options" prop: plain values or {value, label}
// maps. Prompts answer with the value.
func optionStrings(raw any) []string {
	var out []string
	add := func(option any) {
		if m, ok := option.(map[string]any); ok {
			option = m["value"]
		}
		if option == nil {
			return
		}
		out = append(out, stringOf(option))
	}
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, option := range v {
			add(option)
		}
	}
	return out
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringOf(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

func stringOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func prettyJSON(value any) string {
	if value == nil {
		return ""
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return stringOf(value)
	}
	return string(raw)
}

type leaf struct {
	path  fieldpath.Path
	value any
}

// flatten lists the scalar leaves of values in path order. Empty maps and
// lists produce no leaves.
func flatten(prefix fieldpath.Path, value any, out []leaf) []leaf {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = flatten(prefix.Append(fieldpath.Key(key)), v[key], out)
		}
	case []any:
		for i, item := range v {
			out = flatten(prefix.Append(fieldpath.Index(i)), item, out)
		}
	default:
		out = append(out, leaf{path: prefix.Clone(), value: v})
	}
	return out
}

// flattenForm encodes values as a query string keyed by dotted paths, the
// names the HTML renderer gives its inputs.
func flattenForm(values map[string]any) string {
	form := url.Values{}
	for _, l := range flatten(nil, values, nil) {
		if l.value == nil {
			continue
		}
		form.Add(l.path.String(), stringOf(l.value))
	}
	return form.Encode()
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	for _, l := range flatten(nil, values, nil) {
		b.WriteString(l.path.String())
		b.WriteString(" = ")
		if l.value == nil {
			b.WriteString("null")
		} else {
			b.WriteString(stringOf(l.value))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
