// Package openapi validates value trees against OpenAPI 3 schemas using
// kin-openapi and reports the failures as path-addressed issues.
package openapi

import (
	"context"
	"errors"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/validation"
)

// Validator runs openapi3.Schema.VisitJSON with every error collected.
type Validator struct {
	schema *openapi3.Schema
}

// New wraps an already built openapi3 schema.
func New(s *openapi3.Schema) *Validator {
	return &Validator{schema: s}
}

// FromIR builds the validator from the schema IR.
func FromIR(s schema.Schema) *Validator {
	return New(ToOpenAPI(s))
}

// Schema exposes the underlying openapi3 schema.
func (v *Validator) Schema() *openapi3.Schema { return v.schema }

// Validate implements validation.Validator.
func (v *Validator) Validate(_ context.Context, input any) validation.Outcome {
	value, err := validation.JSONValue(input)
	if err != nil {
		return validation.Failed(err)
	}
	if v == nil || v.schema == nil {
		return validation.Ready(validation.Result{Value: value})
	}
	verr := v.schema.VisitJSON(value, openapi3.MultiErrors())
	if verr == nil {
		return validation.Ready(validation.Result{Value: value})
	}
	issues := issuesFrom(verr)
	if len(issues) == 0 {
		return validation.Failed(verr)
	}
	return validation.Ready(validation.Result{Issues: issues})
}

func issuesFrom(err error) validation.Issues {
	var out validation.Issues
	var walk func(error)
	walk = func(err error) {
		switch typed := err.(type) {
		case openapi3.MultiError:
			for _, child := range typed {
				walk(child)
			}
		case *openapi3.SchemaError:
			out = append(out, issueFrom(typed))
		default:
			var schemaErr *openapi3.SchemaError
			if errors.As(err, &schemaErr) {
				out = append(out, issueFrom(schemaErr))
			}
		}
	}
	walk(err)
	return out
}

func issueFrom(err *openapi3.SchemaError) validation.Issue {
	code := err.SchemaField
	if code == "" {
		code = validation.CodeCustom
	}
	message := strings.TrimSpace(err.Reason)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	return validation.Issue{
		Path:    fieldpath.FromTokens(err.JSONPointer()),
		Code:    code,
		Message: message,
	}
}
