package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbind/pkg/schema"
)

// ToOpenAPI converts the schema IR into an openapi3 schema. Unresolved
// references become permissive schemas.
func ToOpenAPI(src schema.Schema) *openapi3.Schema {
	out := &openapi3.Schema{
		Format:       src.Format,
		Title:        src.Title,
		Description:  src.Description,
		Default:      src.Default,
		Pattern:      src.Pattern,
		ExclusiveMin: src.ExclusiveMinimum,
		ExclusiveMax: src.ExclusiveMaximum,
	}
	if t := src.ResolvedType(); t != "" {
		out.Type = &openapi3.Types{t}
	}
	if len(src.Enum) > 0 {
		out.Enum = append([]any(nil), src.Enum...)
	}
	if len(src.Required) > 0 {
		out.Required = append([]string(nil), src.Required...)
	}
	if len(src.Properties) > 0 {
		out.Properties = make(openapi3.Schemas, len(src.Properties))
		for name, prop := range src.Properties {
			out.Properties[name] = openapi3.NewSchemaRef("", ToOpenAPI(prop))
		}
	}
	if src.Items != nil {
		out.Items = openapi3.NewSchemaRef("", ToOpenAPI(*src.Items))
	}
	if src.Minimum != nil {
		value := *src.Minimum
		out.Min = &value
	}
	if src.Maximum != nil {
		value := *src.Maximum
		out.Max = &value
	}
	if src.MinLength != nil && *src.MinLength > 0 {
		out.MinLength = uint64(*src.MinLength)
	}
	if src.MaxLength != nil {
		value := uint64(*src.MaxLength)
		out.MaxLength = &value
	}
	if src.MinItems != nil && *src.MinItems > 0 {
		out.MinItems = uint64(*src.MinItems)
	}
	if src.MaxItems != nil {
		value := uint64(*src.MaxItems)
		out.MaxItems = &value
	}
	return out
}
