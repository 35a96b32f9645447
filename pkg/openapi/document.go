package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/schema"
)

// ErrOperationNotFound is returned by Select for unknown operation ids.
var ErrOperationNotFound = errors.New("openapi: operation not found")

// Parser extracts operations from a document.
type Parser interface {
	Operations(ctx context.Context, doc schema.Document) (map[string]Operation, error)
}

// ParserOptions toggles parser behaviour.
type ParserOptions struct {
	// ResolveReferences validates the document so every $ref is resolved
	// before conversion. Defaults to true.
	ResolveReferences bool

	// AllowPartialDocuments accepts documents without paths.
	AllowPartialDocuments bool
}

// ParserOption mutates ParserOptions.
type ParserOption func(*ParserOptions)

// WithReferenceResolution toggles eager reference resolution.
func WithReferenceResolution(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.ResolveReferences = enabled
	}
}

// WithPartialDocuments toggles support for component-only documents.
func WithPartialDocuments(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.AllowPartialDocuments = enabled
	}
}

// NewParserOptions applies options over the defaults.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{ResolveReferences: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Operation is the subset of an OpenAPI operation a form binds to: its
// identity and the request body shape.
type Operation struct {
	ID          string         `json:"id"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	RequestBody schema.Schema  `json:"requestBody"`
	Extensions  map[string]any `json:"-"`
}

// NewOperation validates the identity fields.
func NewOperation(id, method, path string, request schema.Schema) (Operation, error) {
	switch {
	case id == "":
		return Operation{}, errors.New("openapi: operation id is required")
	case method == "":
		return Operation{}, errors.New("openapi: operation method is required")
	case path == "":
		return Operation{}, errors.New("openapi: operation path is required")
	}
	return Operation{ID: id, Method: strings.ToUpper(method), Path: path, RequestBody: request}, nil
}

// MustNewOperation panics when construction fails. Useful for fixtures.
func MustNewOperation(id, method, path string, request schema.Schema) Operation {
	op, err := NewOperation(id, method, path, request)
	if err != nil {
		panic(err)
	}
	return op
}

// HasBody reports whether the operation declares a request body shape.
func (op Operation) HasBody() bool {
	return op.RequestBody.ResolvedType() != "" || op.RequestBody.Ref != ""
}

// Select returns the operation with the given id. An empty id selects the
// only operation with a request body, when there is exactly one.
func Select(ops map[string]Operation, id string) (Operation, error) {
	if id != "" {
		op, ok := ops[id]
		if !ok {
			return Operation{}, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return op, nil
	}
	var candidates []string
	for key, op := range ops {
		if op.HasBody() {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) != 1 {
		sort.Strings(candidates)
		return Operation{}, fmt.Errorf("openapi: operation id required, candidates: %s", strings.Join(candidates, ", "))
	}
	return ops[candidates[0]], nil
}

// IDs returns the operation ids sorted.
func IDs(ops map[string]Operation) []string {
	out := make([]string, 0, len(ops))
	for id := range ops {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Detect reports whether raw looks like an OpenAPI (or Swagger) document
// rather than a bare JSON Schema.
func Detect(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' {
		var payload map[string]any
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			_, openapi := payload["openapi"]
			_, swagger := payload["swagger"]
			return openapi || swagger
		}
	}
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "openapi:") || strings.HasPrefix(line, "swagger:") {
			return true
		}
	}
	return false
}
