package widgets

import (
	"testing"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/shape"
	"github.com/goliatone/go-formbind/pkg/view"
)

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	reg := NewRegistry()
	field := Field{Kind: shape.KindBoolean, Hints: map[string]any{"widget": "custom-toggle"}}
	if got, ok := reg.Resolve(field); !ok || got != "custom-toggle" {
		t.Fatalf("expected explicit widget to win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		field  Field
		expect string
	}{
		{
			name:   "boolean toggle",
			field:  Field{Kind: shape.KindBoolean},
			expect: WidgetToggle,
		},
		{
			name: "array chips enum",
			field: Field{Kind: shape.KindArray, Schema: &schema.Schema{
				Type:  schema.TypeArray,
				Items: &schema.Schema{Type: schema.TypeString, Enum: []any{"a", "b"}},
			}},
			expect: WidgetChips,
		},
		{
			name:   "select enum",
			field:  Field{Kind: shape.KindString, Schema: &schema.Schema{Type: schema.TypeString, Enum: []any{"a"}}},
			expect: WidgetSelect,
		},
		{
			name:   "code editor json format",
			field:  Field{Kind: shape.KindString, Schema: &schema.Schema{Type: schema.TypeString, Format: "JSON"}},
			expect: WidgetCodeEditor,
		},
		{
			name:   "free-form object",
			field:  Field{Kind: shape.KindMap},
			expect: WidgetJSONEditor,
		},
		{
			name: "array of free-form objects",
			field: Field{Kind: shape.KindArray, Schema: &schema.Schema{
				Type:  schema.TypeArray,
				Items: &schema.Schema{Type: schema.TypeObject},
			}},
			expect: WidgetKeyValue,
		},
		{
			name:   "list binding",
			field:  Field{Kind: shape.KindArray, List: true},
			expect: WidgetRepeater,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := reg.Resolve(tc.field)
			if !ok || got != tc.expect {
				t.Fatalf("expected %q, got %q (ok=%v)", tc.expect, got, ok)
			}
		})
	}

	if got, ok := reg.Resolve(Field{Kind: shape.KindString}); ok {
		t.Fatalf("plain string should not resolve a widget, got %q", got)
	}
}

func TestRegister_PriorityAndTies(t *testing.T) {
	reg := &Registry{}
	reg.Register("first", 10, func(Field) bool { return true })
	reg.Register("second", 10, func(Field) bool { return true })
	reg.Register("low", 1, func(Field) bool { return true })
	if got, _ := reg.Resolve(Field{}); got != "second" {
		t.Fatalf("latest registration should win a tie, got %q", got)
	}
	reg.Register("high", 99, func(Field) bool { return true })
	if got, _ := reg.Resolve(Field{}); got != "high" {
		t.Fatalf("higher priority should win, got %q", got)
	}
}

type prefs struct {
	Newsletter bool              `json:"newsletter"`
	Meta       map[string]string `json:"meta"`
}

func TestDecorate_UsesUniverse(t *testing.T) {
	universe := shape.Of[prefs]()
	nodes := []*view.Node{
		{Kind: view.KindField, Name: fieldpath.Of("newsletter")},
		{Kind: view.KindField, Name: fieldpath.Of("meta"), Props: map[string]any{"widget": "custom"}},
		{Kind: view.KindGroup, Children: []*view.Node{
			{Kind: view.KindField, Name: fieldpath.Of("unknown"), Type: "boolean"},
		}},
	}
	NewRegistry().Decorate(nodes, universe)

	if got := nodes[0].Prop("widget"); got != WidgetToggle {
		t.Fatalf("newsletter widget = %q", got)
	}
	if got := nodes[1].Prop("widget"); got != "custom" {
		t.Fatalf("explicit hint must be kept, got %q", got)
	}
	if got := nodes[2].Children[0].Prop("widget"); got != WidgetToggle {
		t.Fatalf("node type should be the fallback kind, got %q", got)
	}
}
