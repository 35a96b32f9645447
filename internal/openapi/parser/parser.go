// Package parser converts OpenAPI 3 documents into operations with schema IR
// request bodies using kin-openapi.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-formbind/pkg/openapi"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// Parser implements pkgopenapi.Parser.
type Parser struct {
	options pkgopenapi.ParserOptions
}

var _ pkgopenapi.Parser = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgopenapi.ParserOptions) *Parser {
	return &Parser{options: options}
}

// Operations converts a document into operations keyed by operationId.
// Operations without an id are keyed "method:path".
func (p *Parser) Operations(ctx context.Context, doc schema.Document) (map[string]pkgopenapi.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: p.options.ResolveReferences}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if (spec.Paths == nil || spec.Paths.Len() == 0) && !p.options.AllowPartialDocuments {
		return nil, errors.New("openapi parser: document does not contain any paths")
	}
	if p.options.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}

	operations := make(map[string]pkgopenapi.Operation)
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, operation := range item.Operations() {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				collect(operations, method, path, operation)
			}
		}
	}
	if len(operations) == 0 && !p.options.AllowPartialDocuments {
		return nil, errors.New("openapi parser: no operations extracted")
	}
	return operations, nil
}

func collect(target map[string]pkgopenapi.Operation, method, path string, operation *openapi3.Operation) {
	if operation == nil {
		return
	}
	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	op, err := pkgopenapi.NewOperation(id, method, path, requestSchema(operation.RequestBody))
	if err != nil {
		return
	}
	op.Summary = operation.Summary
	op.Description = operation.Description
	op.Extensions = extensions(operation.Extensions)
	target[id] = op
}

var mediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

func requestSchema(body *openapi3.RequestBodyRef) schema.Schema {
	if body == nil {
		return schema.Schema{}
	}
	if body.Value == nil {
		return schema.Schema{Ref: body.Ref}
	}
	content := body.Value.Content
	for _, mediaType := range mediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return convert(mt.Schema)
		}
	}
	for _, mt := range content {
		if mt != nil {
			return convert(mt.Schema)
		}
	}
	return schema.Schema{}
}

func convert(ref *openapi3.SchemaRef) schema.Schema {
	return (&converter{visiting: make(map[*openapi3.Schema]bool)}).schema(ref)
}

// converter tracks the schemas on the current branch; a schema reached
// again through a reference is emitted as a bare $ref.
type converter struct {
	visiting map[*openapi3.Schema]bool
}

func (c *converter) schema(ref *openapi3.SchemaRef) schema.Schema {
	if ref == nil {
		return schema.Schema{}
	}
	if ref.Value == nil || c.visiting[ref.Value] {
		return schema.Schema{Ref: ref.Ref}
	}
	src := ref.Value
	c.visiting[src] = true
	defer delete(c.visiting, src)

	out := schema.Schema{
		Ref:              ref.Ref,
		Type:             typeOf(src.Type),
		Format:           src.Format,
		Title:            src.Title,
		Description:      src.Description,
		Default:          src.Default,
		Pattern:          src.Pattern,
		Minimum:          src.Min,
		Maximum:          src.Max,
		ExclusiveMinimum: src.ExclusiveMin,
		ExclusiveMaximum: src.ExclusiveMax,
		MinLength:        nonZero(src.MinLength),
		MaxLength:        intOf(src.MaxLength),
		MinItems:         nonZero(src.MinItems),
		MaxItems:         intOf(src.MaxItems),
		Extensions:       extensions(src.Extensions),
	}
	if len(src.Required) > 0 {
		out.Required = append([]string(nil), src.Required...)
	}
	if len(src.Enum) > 0 {
		out.Enum = append([]any(nil), src.Enum...)
	}
	if len(src.Properties) > 0 {
		out.Properties = make(map[string]schema.Schema, len(src.Properties))
		for name, prop := range src.Properties {
			out.Properties[name] = c.schema(prop)
		}
	}
	if src.Items != nil {
		items := c.schema(src.Items)
		out.Items = &items
	}
	for _, part := range src.AllOf {
		c.merge(&out, c.schema(part))
	}
	return out
}

// merge folds an allOf member into target: properties and required names
// are unioned, scalar keywords fill only what target leaves unset.
func (c *converter) merge(target *schema.Schema, part schema.Schema) {
	if target.Type == "" {
		target.Type = part.ResolvedType()
	}
	if len(part.Properties) > 0 && target.Properties == nil {
		target.Properties = make(map[string]schema.Schema, len(part.Properties))
	}
	for name, prop := range part.Properties {
		if _, exists := target.Properties[name]; !exists {
			target.Properties[name] = prop
		}
	}
	for _, name := range part.Required {
		if !contains(target.Required, name) {
			target.Required = append(target.Required, name)
		}
	}
	if target.Items == nil && part.Items != nil {
		target.Items = part.Items
	}
	if target.Description == "" {
		target.Description = part.Description
	}
	for key, value := range part.Extensions {
		if target.Extensions == nil {
			target.Extensions = make(map[string]any)
		}
		if _, exists := target.Extensions[key]; !exists {
			target.Extensions[key] = value
		}
	}
}

func typeOf(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func nonZero(v uint64) *int {
	if v == 0 {
		return nil
	}
	n := int(v)
	return &n
}

func intOf(v *uint64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

const extensionNamespace = "x-formbind"

// extensions keeps the x-formbind namespace: the object form and the
// x-formbind-* keys.
func extensions(raw map[string]any) map[string]any {
	var out map[string]any
	for key, value := range raw {
		if key != extensionNamespace && !strings.HasPrefix(key, extensionNamespace+"-") {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		if nested, ok := value.(map[string]any); ok {
			clone := make(map[string]any, len(nested))
			for k, v := range nested {
				clone[k] = v
			}
			value = clone
		}
		out[key] = value
	}
	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
