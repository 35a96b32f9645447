package schema

import (
	"sort"
	"strings"
)

// Type names used by the IR. They follow JSON Schema spelling.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Schema is the canonical value-shape IR produced by the document decoders
// and OpenAPI parser. Path universes and validators are derived from it.
type Schema struct {
	Ref              string            `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type             string            `json:"type,omitempty" yaml:"type,omitempty"`
	Format           string            `json:"format,omitempty" yaml:"format,omitempty"`
	Title            string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	Default          any               `json:"default,omitempty" yaml:"default,omitempty"`
	Enum             []any             `json:"enum,omitempty" yaml:"enum,omitempty"`
	Required         []string          `json:"required,omitempty" yaml:"required,omitempty"`
	Properties       map[string]Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items            *Schema           `json:"items,omitempty" yaml:"items,omitempty"`
	Minimum          *float64          `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum          *float64          `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	ExclusiveMinimum bool              `json:"-" yaml:"-"`
	ExclusiveMaximum bool              `json:"-" yaml:"-"`
	MinLength        *int              `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength        *int              `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinItems         *int              `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems         *int              `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Pattern          string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Extensions       map[string]any    `json:"-" yaml:"-"`
}

// ResolvedType returns the declared type, inferring "object" when only
// properties are present and "array" when only items are present.
func (s Schema) ResolvedType() string {
	if t := strings.TrimSpace(s.Type); t != "" {
		if idx := strings.IndexByte(t, ','); idx > 0 {
			return t[:idx]
		}
		return t
	}
	switch {
	case len(s.Properties) > 0:
		return TypeObject
	case s.Items != nil:
		return TypeArray
	default:
		return ""
	}
}

// PropertyNames returns the property names in a deterministic order:
// required names first in declaration order, then the rest sorted.
func (s Schema) PropertyNames() []string {
	if len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]struct{}, len(s.Properties))
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	rest := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// IsRequired reports whether name is listed as required.
func (s Schema) IsRequired(name string) bool {
	for _, candidate := range s.Required {
		if candidate == name {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the schema tree.
func (s Schema) Clone() Schema {
	cloned := s
	if len(s.Required) > 0 {
		cloned.Required = append([]string(nil), s.Required...)
	}
	if len(s.Enum) > 0 {
		cloned.Enum = append([]any(nil), s.Enum...)
	}
	if len(s.Properties) > 0 {
		cloned.Properties = make(map[string]Schema, len(s.Properties))
		for name, prop := range s.Properties {
			cloned.Properties[name] = prop.Clone()
		}
	}
	if s.Items != nil {
		items := s.Items.Clone()
		cloned.Items = &items
	}
	return cloned
}
