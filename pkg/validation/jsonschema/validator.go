// Package jsonschema validates value trees against JSON Schema documents
// compiled with santhosh-tekuri/jsonschema.
package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/validation"
)

const resourceURL = "formbind://schema.json"

// Validator validates against a compiled JSON Schema.
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// Option customises a Validator.
type Option func(*Validator)

// WithLanguage selects the language used to render issue messages.
func WithLanguage(tag language.Tag) Option {
	return func(v *Validator) {
		v.printer = message.NewPrinter(tag)
	}
}

// New wraps a compiled schema.
func New(compiled *jsonschema.Schema, opts ...Option) *Validator {
	v := &Validator{schema: compiled, printer: message.NewPrinter(language.English)}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Compile parses and compiles a raw JSON Schema document.
func Compile(raw []byte, opts ...Option) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: decode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("jsonschema: add resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: compile: %w", err)
	}
	return New(compiled, opts...), nil
}

// FromIR compiles the schema IR. References are dropped; the IR already
// carries the resolved shape.
func FromIR(s schema.Schema, opts ...Option) (*Validator, error) {
	raw, err := json.Marshal(withoutRefs(s))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: encode schema: %w", err)
	}
	return Compile(raw, opts...)
}

// MustFromIR is FromIR that panics on error.
func MustFromIR(s schema.Schema, opts ...Option) *Validator {
	v, err := FromIR(s, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func withoutRefs(s schema.Schema) schema.Schema {
	out := s.Clone()
	out.Ref = ""
	out.Type = out.ResolvedType()
	for name, prop := range out.Properties {
		out.Properties[name] = withoutRefs(prop)
	}
	if out.Items != nil {
		items := withoutRefs(*out.Items)
		out.Items = &items
	}
	return out
}

// Validate implements validation.Validator.
func (v *Validator) Validate(_ context.Context, input any) validation.Outcome {
	value, err := validation.JSONValue(input)
	if err != nil {
		return validation.Failed(err)
	}
	if v == nil || v.schema == nil {
		return validation.Ready(validation.Result{Value: value})
	}
	verr := v.schema.Validate(value)
	if verr == nil {
		return validation.Ready(validation.Result{Value: value})
	}
	var ve *jsonschema.ValidationError
	if !errors.As(verr, &ve) {
		return validation.Failed(verr)
	}
	return validation.Ready(validation.Result{Issues: v.issues(ve)})
}

func (v *Validator) issues(root *jsonschema.ValidationError) validation.Issues {
	var out validation.Issues
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) > 0 {
			for _, cause := range node.Causes {
				walk(cause)
			}
			return
		}
		location := fieldpath.FromTokens(node.InstanceLocation)
		if required, ok := node.ErrorKind.(*kind.Required); ok {
			for _, name := range required.Missing {
				out = append(out, validation.Issue{
					Path:    location.Append(fieldpath.Key(name)),
					Code:    validation.CodeRequired,
					Message: v.printer.Sprintf("missing property %s", quote(name)),
				})
			}
			return
		}
		out = append(out, validation.Issue{
			Path:    location,
			Code:    code(node.ErrorKind),
			Message: node.ErrorKind.LocalizedString(v.printer),
		})
	}
	walk(root)
	return out
}

func code(k jsonschema.ErrorKind) string {
	if k == nil {
		return validation.CodeCustom
	}
	keywords := k.KeywordPath()
	if len(keywords) == 0 {
		return validation.CodeCustom
	}
	return keywords[len(keywords)-1]
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
