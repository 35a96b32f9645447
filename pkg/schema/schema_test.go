package schema_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/schema"
)

func TestDecodeYAMLKeepsExtensions(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFS("profile.yaml"), []byte(`
title: Profile
type: object
required: [name]
properties:
  name:
    type: [string, "null"]
    minLength: 2
    x-formbind-placeholder: Ada
  tags:
    type: array
    maxItems: 3
    items:
      type: string
      enum: [go, zig]
  score:
    type: number
    minimum: 0.5
`))

	got, err := schema.Decode(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Profile" || got.ResolvedType() != schema.TypeObject {
		t.Fatalf("unexpected root %+v", got)
	}
	name := got.Properties["name"]
	if name.Type != schema.TypeString || name.MinLength == nil || *name.MinLength != 2 {
		t.Fatalf("unexpected name schema %+v", name)
	}
	if name.Extensions["x-formbind-placeholder"] != "Ada" {
		t.Fatalf("extension dropped, got %v", name.Extensions)
	}
	tags := got.Properties["tags"]
	if tags.MaxItems == nil || *tags.MaxItems != 3 || tags.Items == nil {
		t.Fatalf("unexpected tags schema %+v", tags)
	}
	if diff := cmp.Diff([]any{"go", "zig"}, tags.Items.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if score := got.Properties["score"]; score.Minimum == nil || *score.Minimum != 0.5 {
		t.Fatalf("unexpected score schema %+v", score)
	}
}

func TestDecodeRejectsInvalidPayload(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFS("bad.yaml"), []byte("- just\n- a list\n"))
	if _, err := schema.Decode(doc); err == nil {
		t.Fatalf("expected error for a non-object document")
	}
}

func TestPropertyNamesRequiredFirst(t *testing.T) {
	s := schema.Schema{
		Required: []string{"zip", "missing", "name", "zip"},
		Properties: map[string]schema.Schema{
			"name": {}, "zip": {}, "city": {}, "age": {},
		},
	}
	if diff := cmp.Diff([]string{"zip", "name", "age", "city"}, s.PropertyNames()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if !s.IsRequired("name") || s.IsRequired("city") {
		t.Fatalf("IsRequired mismatch")
	}
}

func TestResolvedTypeInference(t *testing.T) {
	cases := []struct {
		in   schema.Schema
		want string
	}{
		{schema.Schema{Type: "integer"}, schema.TypeInteger},
		{schema.Schema{Type: "string,null"}, schema.TypeString},
		{schema.Schema{Properties: map[string]schema.Schema{"a": {}}}, schema.TypeObject},
		{schema.Schema{Items: &schema.Schema{}}, schema.TypeArray},
		{schema.Schema{}, ""},
	}
	for _, tc := range cases {
		if got := tc.in.ResolvedType(); got != tc.want {
			t.Fatalf("ResolvedType(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := schema.Schema{
		Required: []string{"a"},
		Properties: map[string]schema.Schema{
			"a": {Items: &schema.Schema{Type: schema.TypeString}},
		},
	}
	cloned := original.Clone()
	cloned.Required[0] = "b"
	cloned.Properties["a"].Items.Type = schema.TypeInteger
	delete(cloned.Properties, "a")

	if original.Required[0] != "a" {
		t.Fatalf("required shared with clone")
	}
	if original.Properties["a"].Items.Type != schema.TypeString {
		t.Fatalf("items shared with clone")
	}
}

func TestSourceFor(t *testing.T) {
	if src := schema.SourceFor("https://example.com/openapi.json"); src.Kind() != schema.SourceKindURL {
		t.Fatalf("expected url source, got %s", src.Kind())
	}
	if src := schema.SourceFor("./openapi.yaml"); src.Kind() != schema.SourceKindFile {
		t.Fatalf("expected file source, got %s", src.Kind())
	}
	if schema.SourceFor("  ") != nil {
		t.Fatalf("expected nil source for blank input")
	}
	if _, err := schema.NewDocument(nil, []byte("{}")); err == nil {
		t.Fatalf("expected error without source")
	}
}
