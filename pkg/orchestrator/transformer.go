package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/schema"
)

// Transformer rewrites the request schema before the form is bound. Labels,
// hints and constraints patched here reach both the controls and the
// validator.
type Transformer interface {
	Transform(ctx context.Context, root *schema.Schema) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, root *schema.Schema) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, root *schema.Schema) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, root)
}

// JSONPresetTransformer applies declarative per-field patches loaded from
// JSON. Field keys are dotted property paths; "items" steps into an array
// element:
//
//	{
//	  "fields": {
//	    "name": {"label": "Full name", "placeholder": "Ada Lovelace"},
//	    "emails.items.address": {"widget": "input", "required": true}
//	  }
//	}
type JSONPresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	Fields map[string]fieldPatch `json:"fields"`
}

type fieldPatch struct {
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Placeholder string         `json:"placeholder"`
	Widget      string         `json:"widget"`
	Format      string         `json:"format"`
	Required    *bool          `json:"required"`
	Hints       map[string]any `json:"hints"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document presetDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a preset document from fsys.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the patches in path order. An unknown path is an error.
func (t *JSONPresetTransformer) Transform(ctx context.Context, root *schema.Schema) error {
	if root == nil {
		return errors.New("json preset transformer: schema is nil")
	}
	paths := make([]string, 0, len(t.document.Fields))
	for path := range t.document.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := patchAt(root, strings.Split(path, "."), t.document.Fields[path]); err != nil {
			return fmt.Errorf("json preset transformer: field %q: %w", path, err)
		}
	}
	return nil
}

var errFieldNotFound = errors.New("not found")

// patchAt walks segments below node. Property schemas are stored by value,
// so each level writes its updated child back.
func patchAt(node *schema.Schema, segments []string, patch fieldPatch) error {
	head, rest := segments[0], segments[1:]
	if head == "items" && node.Items != nil {
		if len(rest) == 0 {
			applyPatch(node.Items, patch, nil, "")
			return nil
		}
		return patchAt(node.Items, rest, patch)
	}
	child, ok := node.Properties[head]
	if !ok {
		return errFieldNotFound
	}
	if len(rest) == 0 {
		applyPatch(&child, patch, node, head)
	} else if err := patchAt(&child, rest, patch); err != nil {
		return err
	}
	node.Properties[head] = child
	return nil
}

func applyPatch(field *schema.Schema, patch fieldPatch, parent *schema.Schema, name string) {
	if patch.Label != "" {
		field.Title = patch.Label
	}
	if patch.Description != "" {
		field.Description = patch.Description
	}
	if patch.Format != "" {
		field.Format = patch.Format
	}
	hints := make(map[string]any, len(field.Extensions)+len(patch.Hints)+2)
	for key, value := range field.Extensions {
		hints[key] = value
	}
	for key, value := range patch.Hints {
		hints[extensionKey(key)] = value
	}
	if patch.Placeholder != "" {
		hints[ExtPlaceholder] = patch.Placeholder
	}
	if patch.Widget != "" {
		hints[ExtWidget] = patch.Widget
	}
	if len(hints) > 0 {
		field.Extensions = hints
	}
	if patch.Required != nil && parent != nil {
		parent.Required = setRequired(parent.Required, name, *patch.Required)
	}
}

func setRequired(required []string, name string, on bool) []string {
	out := make([]string, 0, len(required)+1)
	for _, candidate := range required {
		if candidate != name {
			out = append(out, candidate)
		}
	}
	if on {
		out = append(out, name)
	}
	return out
}

func extensionKey(key string) string {
	if strings.HasPrefix(key, "x-") {
		return key
	}
	return "x-" + key
}
