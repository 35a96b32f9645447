package jsonschema

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/validation"
)

const profileDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "age"],
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "age": { "type": "integer" },
    "emails": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["email"],
        "properties": { "email": { "type": "string" } }
      }
    }
  }
}`

func TestRequiredPaths(t *testing.T) {
	v, err := Compile([]byte(profileDoc))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	paths, err := validation.RequiredPaths(context.Background(), v)
	if err != nil {
		t.Fatalf("required: %v", err)
	}
	got := make([]string, len(paths))
	for i, p := range paths {
		got[i] = p.String()
	}
	if diff := cmp.Diff([]string{"name", "age"}, got); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_NestedItemIssue(t *testing.T) {
	v, err := Compile([]byte(profileDoc))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	input := map[string]any{
		"name":   "Ada",
		"age":    36,
		"emails": []any{map[string]any{"email": "a@b.c"}, map[string]any{}},
	}
	result, err := v.Validate(context.Background(), input).Await(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	issue, ok := result.Issues.First(fieldpath.Of("emails", 1, "email"))
	if !ok || issue.Code != validation.CodeRequired {
		t.Fatalf("expected required issue at emails.1.email, got %+v", result.Issues)
	}
}

func TestFromIR(t *testing.T) {
	minLen := 1
	v, err := FromIR(schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"title"},
		Properties: map[string]schema.Schema{
			"title": {Type: schema.TypeString, MinLength: &minLen, Ref: "#/components/schemas/Title"},
		},
	})
	if err != nil {
		t.Fatalf("from IR: %v", err)
	}
	result, _ := v.Validate(context.Background(), map[string]any{"title": ""}).Await(context.Background())
	issue, ok := result.Issues.First(fieldpath.Of("title"))
	if !ok || issue.Code != "minLength" {
		t.Fatalf("expected minLength issue, got %+v", result.Issues)
	}

	result, _ = v.Validate(context.Background(), map[string]any{"title": "ok"}).Await(context.Background())
	if !result.OK() {
		t.Fatalf("unexpected issues: %+v", result.Issues)
	}
}
