package schema

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Decode parses a JSON Schema (or YAML rendition) document into the IR. Only
// the keywords the IR models are read; everything else is ignored.
func Decode(doc Document) (Schema, error) {
	raw := doc.Raw()
	if len(raw) == 0 {
		return Schema{}, errors.New("schema: document payload is empty")
	}

	var node map[string]any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return Schema{}, fmt.Errorf("schema: decode %s: %w", doc.Location(), err)
	}
	return FromMap(node), nil
}

// FromMap converts a decoded JSON Schema object into the IR.
func FromMap(node map[string]any) Schema {
	if len(node) == 0 {
		return Schema{}
	}
	out := Schema{
		Ref:         stringOf(node["$ref"]),
		Format:      stringOf(node["format"]),
		Title:       stringOf(node["title"]),
		Description: stringOf(node["description"]),
		Default:     node["default"],
		Pattern:     stringOf(node["pattern"]),
		Minimum:     floatPtr(node["minimum"]),
		Maximum:     floatPtr(node["maximum"]),
		MinLength:   intPtr(node["minLength"]),
		MaxLength:   intPtr(node["maxLength"]),
		MinItems:    intPtr(node["minItems"]),
		MaxItems:    intPtr(node["maxItems"]),
	}

	switch t := node["type"].(type) {
	case string:
		out.Type = t
	case []any:
		for _, candidate := range t {
			if s, ok := candidate.(string); ok && s != "null" {
				out.Type = s
				break
			}
		}
	}

	if enum, ok := node["enum"].([]any); ok {
		out.Enum = append([]any(nil), enum...)
	}
	if required, ok := node["required"].([]any); ok {
		for _, name := range required {
			if s, ok := name.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if props, ok := node["properties"].(map[string]any); ok && len(props) > 0 {
		out.Properties = make(map[string]Schema, len(props))
		for name, raw := range props {
			child, _ := raw.(map[string]any)
			out.Properties[name] = FromMap(child)
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		child := FromMap(items)
		out.Items = &child
	}
	for key, value := range node {
		if len(key) > 2 && key[:2] == "x-" {
			if out.Extensions == nil {
				out.Extensions = make(map[string]any)
			}
			out.Extensions[key] = value
		}
	}
	return out
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func floatPtr(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	default:
		return nil
	}
	return &f
}

func intPtr(v any) *int {
	f := floatPtr(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
