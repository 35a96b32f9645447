package binding

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/scope"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/validation/openapi"
	"github.com/goliatone/go-formbind/pkg/view"
)

type updates struct {
	Security   bool `json:"security"`
	Newsletter bool `json:"newsletter"`
}

type email struct {
	Email   string  `json:"email"`
	Updates updates `json:"updates"`
}

type signup struct {
	Emails []email `json:"emails"`
}

type address struct {
	Street string `json:"street"`
}

type person struct {
	Address address `json:"address"`
}

type row struct {
	X string `json:"x"`
}

type table struct {
	Rows []row `json:"rows"`
}

func intPtr(v int) *int { return &v }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func names(nodes []*view.Node) []string {
	var out []string
	for _, n := range view.Fields(nodes) {
		out = append(out, n.Name.String())
	}
	return out
}

func TestScoped_PanicsOutsideForm(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNoFormContext) {
			t.Fatalf("expected ErrNoFormContext panic, got %v", r)
		}
	}()
	Scoped(context.Background(), true)
}

func TestList_PanicsWithoutPath(t *testing.T) {
	form := MustNew[table](WithLogger(quietLogger()))
	defer func() {
		if r := recover(); r != ErrMissingListPath {
			t.Fatalf("expected ErrMissingListPath panic, got %v", r)
		}
	}()
	form.Render(context.Background(), form.List(ListProps{}))
}

func TestItem_WithoutPathIsLayoutOnly(t *testing.T) {
	form := MustNew[person](WithLogger(quietLogger()))
	nodes := form.Render(context.Background(), form.Item(ItemProps{
		Control: map[string]any{"label": "Address"},
		Children: form.Item(ItemProps{Path: []any{"address", "street"}}),
	}))
	if len(nodes) != 1 || nodes[0].Kind != view.KindGroup {
		t.Fatalf("expected a single group node, got %+v", nodes)
	}
	if diff := cmp.Diff([]string{"address.street"}, names(nodes)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := len(form.Store().Fields()); got != 1 {
		t.Fatalf("layout group must not register a field, got %d fields", got)
	}
}

func TestRequiredSet(t *testing.T) {
	required := schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"name", "age"},
		Properties: map[string]schema.Schema{
			"name": {Type: schema.TypeString},
			"age":  {Type: schema.TypeInteger},
		},
	}
	form := MustNew[map[string]any](WithValidator(openapi.FromIR(required)), WithLogger(quietLogger()))
	var got []string
	for _, p := range form.RequiredPaths() {
		got = append(got, p.String())
	}
	if diff := cmp.Diff([]string{"name", "age"}, got); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	nodes := form.Render(context.Background(), view.Fragment(
		form.Item(ItemProps{Path: "name"}),
		form.Item(ItemProps{Path: "nickname"}),
	))
	if !view.Find(nodes, fieldpath.Of("name")).Required {
		t.Fatalf("name should be required")
	}
	if view.Find(nodes, fieldpath.Of("nickname")).Required {
		t.Fatalf("nickname should not be required")
	}

	optional := schema.Schema{Type: schema.TypeObject, Properties: map[string]schema.Schema{"name": {Type: schema.TypeString}}}
	form = MustNew[map[string]any](WithValidator(openapi.FromIR(optional)), WithLogger(quietLogger()))
	if got := form.RequiredPaths(); len(got) != 0 {
		t.Fatalf("expected no required paths, got %v", got)
	}
}

func TestRequiredSet_AsyncValidatorWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	base := validation.Func(func(context.Context, any) (validation.Result, error) {
		return validation.Result{Issues: validation.Issues{{Path: fieldpath.Of("name"), Code: validation.CodeRequired, Message: "required"}}}, nil
	})

	form, err := New[map[string]any](WithValidator(validation.Async(base)), WithLogger(logger))
	if err != nil {
		t.Fatalf("async validator must not fail form creation: %v", err)
	}
	if got := form.RequiredPaths(); len(got) != 0 {
		t.Fatalf("required detection should be disabled, got %v", got)
	}
	if !strings.Contains(buf.String(), "required-field detection disabled") {
		t.Fatalf("expected a warning, log was %q", buf.String())
	}

	form.Render(context.Background(), form.Item(ItemProps{Path: "name"}))
	_, err = form.Submit(context.Background())
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("per-field async validation should still run, got %v", err)
	}
	if diff := cmp.Diff([]string{"required"}, submitErr.Messages(fieldpath.Of("name"))); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValidation_CrossReference(t *testing.T) {
	security := fieldpath.Of("emails", 0, "updates", "security")
	base := validation.Func(func(_ context.Context, input any) (validation.Result, error) {
		return validation.Result{Value: input}, nil
	})
	refined := validation.Refine(base, func(context.Context, any) validation.Issues {
		return validation.Issues{{Path: security, Code: validation.CodeCustom, Message: "security updates must stay enabled"}}
	})

	form := MustNew[signup](WithValidator(refined), WithLogger(quietLogger()))
	root := view.Fragment(
		form.Item(ItemProps{Path: []any{"emails", 0, "email"}, Initial: "a@b.co"}),
		form.Item(ItemProps{Path: []any{"emails", 0, "updates", "security"}, Initial: false}),
	)
	form.Render(context.Background(), root)

	_, err := form.Submit(context.Background())
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected a submit error, got %v", err)
	}
	if diff := cmp.Diff([]string{"security updates must stay enabled"}, submitErr.Messages(security)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := form.Store().Errors(fieldpath.Of("emails", 0, "email")); len(got) != 0 {
		t.Fatalf("sibling field must not report the issue, got %v", got)
	}

	nodes := form.Render(context.Background(), root)
	if diff := cmp.Diff([]string{"security updates must stay enabled"}, view.Find(nodes, security).Errors); diff != "" {
		t.Fatalf("rendered errors mismatch (-want +got):\n%s", diff)
	}
}

func TestInherit_DoesNotCompound(t *testing.T) {
	form := MustNew[map[string]any](WithLogger(quietLogger()))
	var resolved []string
	leaf := func(ctx context.Context) []*view.Node {
		in := Scoped(ctx, true)
		resolved = append(resolved, in.Resolve(ctx, fieldpath.Of("x")).String())
		return in.Item(ItemProps{
			Path: "x",
			Children: func(ctx context.Context) []*view.Node {
				inner := Scoped(ctx, true)
				resolved = append(resolved, inner.Resolve(ctx, fieldpath.Of("x")).String())
				return nil
			},
		})(ctx)
	}
	form.Render(context.Background(), form.Item(ItemProps{Path: "profile", Children: leaf}))

	if diff := cmp.Diff([]string{"profile.x", "profile.x"}, resolved); diff != "" {
		t.Fatalf("resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestInherit_DuplicatePrefixWarnsWithoutStripping(t *testing.T) {
	var buf bytes.Buffer
	form := MustNew[map[string]any](WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	var got fieldpath.Path
	form.Render(context.Background(), form.Item(ItemProps{
		Path: "address",
		Children: func(ctx context.Context) []*view.Node {
			got = Scoped(ctx, true).Resolve(ctx, fieldpath.Of("address", "street"))
			return nil
		},
	}))
	if got.String() != "address.address.street" {
		t.Fatalf("resolve must compose, got %s", got)
	}
	if !strings.Contains(buf.String(), "duplicate prefix") {
		t.Fatalf("expected a duplicate prefix warning, log was %q", buf.String())
	}
}

func TestUnknownPath(t *testing.T) {
	var buf bytes.Buffer
	form := MustNew[person](WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	form.Render(context.Background(), form.Item(ItemProps{Path: []any{"address", "zip"}}))
	form.Render(context.Background(), form.Item(ItemProps{Path: []any{"address", "zip"}}))
	if n := strings.Count(buf.String(), "not part of the form shape"); n != 1 {
		t.Fatalf("expected one warning, got %d in %q", n, buf.String())
	}

	strict := MustNew[person](WithStrictPaths(true), WithLogger(quietLogger()))
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrUnknownPath) {
			t.Fatalf("expected ErrUnknownPath panic, got %v", err)
		}
	}()
	strict.Render(context.Background(), strict.Item(ItemProps{Path: []any{"address", "zip"}}))
}

func TestEndToEnd_InheritedStreet(t *testing.T) {
	v := openapi.FromIR(schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"address"},
		Properties: map[string]schema.Schema{
			"address": {
				Type:       schema.TypeObject,
				Required:   []string{"street"},
				Properties: map[string]schema.Schema{"street": {Type: schema.TypeString}},
			},
		},
	})
	form := MustNew[person](WithValidator(v), WithLogger(quietLogger()))
	street := func(ctx context.Context) []*view.Node {
		return Scoped(ctx, true).Item(ItemProps{Path: "street"})(ctx)
	}
	root := form.Item(ItemProps{Path: "address", Children: street})

	nodes, err := form.Settle(context.Background(), root)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if diff := cmp.Diff([]string{"address", "address.street"}, names(nodes)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	field, ok := form.Store().Field(fieldpath.Of("address", "street"))
	if !ok {
		t.Fatalf("street field not registered")
	}
	if err := field.Set("Main St"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := form.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if diff := cmp.Diff(person{Address: address{Street: "Main St"}}, got); diff != "" {
		t.Fatalf("parsed value mismatch (-want +got):\n%s", diff)
	}
}

func signupSchema() schema.Schema {
	return schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"emails"},
		Properties: map[string]schema.Schema{
			"emails": {
				Type:     schema.TypeArray,
				MinItems: intPtr(1),
				Items: &schema.Schema{
					Type:     schema.TypeObject,
					Required: []string{"email", "updates"},
					Properties: map[string]schema.Schema{
						"email": {Type: schema.TypeString, MinLength: intPtr(1)},
						"updates": {
							Type:     schema.TypeObject,
							Required: []string{"security", "newsletter"},
							Properties: map[string]schema.Schema{
								"security":   {Type: schema.TypeBoolean},
								"newsletter": {Type: schema.TypeBoolean},
							},
						},
					},
				},
			},
		},
	}
}

func TestEndToEnd_AddFillsDefaults(t *testing.T) {
	form := MustNew[signup](WithValidator(openapi.FromIR(signupSchema())), WithLogger(quietLogger()))
	var ops ListOps
	root := form.List(ListProps{
		Path: "emails",
		Each: func(ctx context.Context, item ListItem, _ ListOps) []*view.Node {
			return view.Fragment(
				form.Item(ItemProps{Path: item.Name("email")}),
				form.Item(ItemProps{Path: item.Name([]any{"updates", "security"}), Initial: true}),
				form.Item(ItemProps{Path: item.Name([]any{"updates", "newsletter"}), Initial: false}),
			)(ctx)
		},
		Children: func(_ context.Context, _ []ListItem, o ListOps, _ ListMeta) []*view.Node {
			ops = o
			return nil
		},
	})

	if _, err := form.Settle(context.Background(), root); err != nil {
		t.Fatalf("settle: %v", err)
	}
	_, err := form.Submit(context.Background())
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) || len(submitErr.Messages(fieldpath.Of("emails"))) == 0 {
		t.Fatalf("empty list must fail the minimum item check, got %v", err)
	}

	ops.Add()
	nodes := form.Render(context.Background(), root)
	if got := names(nodes); len(got) != 0 {
		t.Fatalf("added item must not be visible before the next pass, got %v", got)
	}
	nodes, err = form.Settle(context.Background(), root)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := []string{"emails.0.email", "emails.0.updates.security", "emails.0.updates.newsletter"}
	if diff := cmp.Diff(want, names(nodes)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	if err := form.Store().SetValue(fieldpath.Of("emails", 0, "email"), "ada@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := form.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	expected := signup{Emails: []email{{Email: "ada@example.com", Updates: updates{Security: true}}}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("parsed value mismatch (-want +got):\n%s", diff)
	}
	if errs := form.Store().Errors(fieldpath.Of("emails")); len(errs) != 0 {
		t.Fatalf("list errors should be cleared, got %v", errs)
	}
}

func TestList_IndexRebasing(t *testing.T) {
	form := MustNew[table](WithLogger(quietLogger()))
	var ops ListOps
	var handles []ListItem
	root := form.List(ListProps{
		Path: "rows",
		Initial: []any{
			map[string]any{"x": "a"},
			map[string]any{"x": "b"},
			map[string]any{"x": "c"},
		},
		Each: func(ctx context.Context, item ListItem, _ ListOps) []*view.Node {
			return form.Item(ItemProps{Path: item.Name("x")})(ctx)
		},
		Children: func(_ context.Context, items []ListItem, o ListOps, _ ListMeta) []*view.Node {
			ops, handles = o, items
			return nil
		},
	})
	if _, err := form.Settle(context.Background(), root); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("expected 3 items, got %d", len(handles))
	}

	ops.Remove(1)
	nodes, err := form.Settle(context.Background(), root)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	type handle struct {
		Key   string
		Index int
		Name  string
	}
	var got []handle
	for _, it := range handles {
		got = append(got, handle{Key: it.Key, Index: it.Index, Name: it.Name("x").String()})
		manual := fieldpath.Compose(fieldpath.Of("rows", it.Index), fieldpath.Of("x"))
		if !fieldpath.Equal(manual, it.Name("x")) {
			t.Fatalf("Name and manual composition disagree: %s vs %s", it.Name("x"), manual)
		}
		if segment := fieldpath.Of("rows", it, "x"); !fieldpath.Equal(segment, it.Name("x")) {
			t.Fatalf("item handle as a segment should stand for its index, got %s", segment)
		}
	}
	want := []handle{{Key: "k0", Index: 0, Name: "rows.0.x"}, {Key: "k2", Index: 1, Name: "rows.1.x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	var values []any
	for _, n := range view.Fields(nodes) {
		values = append(values, n.Value)
	}
	if diff := cmp.Diff([]any{"a", "c"}, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if _, ok := form.Store().Field(fieldpath.Of("rows", 2, "x")); ok {
		t.Fatalf("field of the removed tail index must be unmounted")
	}
}

func TestList_ChildrenResolveRelativeToTheList(t *testing.T) {
	form := MustNew[table](WithLogger(quietLogger()))
	var resolved []string
	root := form.List(ListProps{
		Path:    "rows",
		Initial: []any{map[string]any{"x": "a"}, map[string]any{"x": "b"}},
		Children: func(ctx context.Context, items []ListItem, _ ListOps, _ ListMeta) []*view.Node {
			in := Scoped(ctx, true)
			resolved = append(resolved, scope.Read(ctx).String())
			var nodes []*view.Node
			for _, item := range items {
				nodes = append(nodes, in.Item(ItemProps{Path: []any{item.Index, "x"}})(ctx)...)
			}
			return nodes
		},
	})

	nodes, err := form.Settle(context.Background(), root)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(resolved) == 0 || resolved[len(resolved)-1] != "rows" {
		t.Fatalf("children should see the list path as prefix, got %v", resolved)
	}
	if diff := cmp.Diff([]string{"rows.0.x", "rows.1.x"}, names(nodes)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestList_ContentRendersOutsideThePrimitive(t *testing.T) {
	form := MustNew[table](WithLogger(quietLogger()))
	var prefixes []string
	root := form.List(ListProps{
		Path:    "rows",
		Initial: []any{map[string]any{"x": "a"}},
		Each: func(ctx context.Context, item ListItem, _ ListOps) []*view.Node {
			prefixes = append(prefixes, store.RegistrationPrefix(ctx).String()+"|"+scope.Read(ctx).String())
			return form.Item(ItemProps{Path: item.Name("x")})(ctx)
		},
	})
	if _, err := form.Settle(context.Background(), root); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, ok := form.Store().Field(fieldpath.Of("rows", 0, "x")); !ok {
		t.Fatalf("item field must be registered at its full path")
	}
	if _, ok := form.Store().Field(fieldpath.Of("rows", "rows", 0, "x")); ok {
		t.Fatalf("item field must not be prefixed twice")
	}
	if diff := cmp.Diff("|rows.0", prefixes[len(prefixes)-1]); diff != "" {
		t.Fatalf("item context mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize(t *testing.T) {
	form := MustNew[map[string]any](WithNormalize(EmptyAsNil), WithLogger(quietLogger()))
	form.Render(context.Background(), view.Fragment(
		form.Item(ItemProps{Path: "name"}),
		form.Item(ItemProps{Path: "code", Normalize: Chain(TrimSpace, func(_ fieldpath.Path, v any) any {
			if s, ok := v.(string); ok {
				return strings.ToUpper(s)
			}
			return v
		})}),
	))

	s := form.Store()
	if err := s.SetValue(fieldpath.Of("name"), "   "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Value(fieldpath.Of("name")); v != nil {
		t.Fatalf("opt-in EmptyAsNil should store nil, got %#v", v)
	}
	if err := s.SetValue(fieldpath.Of("code"), " ab "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Value(fieldpath.Of("code")); v != "AB" {
		t.Fatalf("field normalizer should win, got %#v", v)
	}

	plain := MustNew[map[string]any](WithLogger(quietLogger()))
	plain.Render(context.Background(), plain.Item(ItemProps{Path: "name"}))
	if err := plain.Store().SetValue(fieldpath.Of("name"), ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := plain.Store().Value(fieldpath.Of("name")); v != "" {
		t.Fatalf("values pass through by default, got %#v", v)
	}
}

func TestSubmitProps(t *testing.T) {
	form := MustNew[person](WithInitialValues(map[string]any{"address": map[string]any{"street": "Elm"}}), WithLogger(quietLogger()))
	var got person
	props := form.SubmitProps(func(_ context.Context, value person) error {
		got = value
		return nil
	})
	if err := props.OnSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Address.Street != "Elm" {
		t.Fatalf("unexpected value %+v", got)
	}
}
