package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbind/pkg/binding"
	"github.com/goliatone/go-formbind/pkg/fieldpath"
	pkgopenapi "github.com/goliatone/go-formbind/pkg/openapi"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/testsupport"
	"github.com/goliatone/go-formbind/pkg/view"
)

type captureRenderer struct {
	form    render.Form
	options render.RenderOptions
}

func (r *captureRenderer) Name() string        { return "capture" }
func (r *captureRenderer) ContentType() string { return "text/plain" }

func (r *captureRenderer) Render(_ context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	r.form, r.options = form, opts
	return []byte(form.ID), nil
}

func captureOrchestrator(options ...orchestrator.Option) (*orchestrator.Orchestrator, *captureRenderer) {
	renderer := &captureRenderer{}
	registry := render.NewRegistry()
	registry.MustRegister(renderer)
	return orchestrator.New(append([]orchestrator.Option{orchestrator.WithRegistry(registry)}, options...)...), renderer
}

func signupDocument(t *testing.T) *schema.Document {
	doc := testsupport.Document(t, "signup.json", testsupport.SignupOpenAPI)
	return &doc
}

func fieldNames(nodes []*view.Node) []string {
	var out []string
	for _, node := range view.Fields(nodes) {
		out = append(out, node.Name.String())
	}
	return out
}

func TestGenerateRendersOperationWithVanilla(t *testing.T) {
	orch := orchestrator.New()
	out, err := orch.Generate(context.Background(), orchestrator.Request{Document: signupDocument(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(out)
	for _, fragment := range []string{
		`id="createUser"`,
		`action="/users"`,
		`<h2>Create user</h2>`,
		`name="name"`,
		`placeholder="Ada Lovelace"`,
		`data-path="address"`,
		`name="address.street"`,
		`data-widget="select"`,
		`data-widget="chips"`,
		`data-path="emails" data-widget="repeater"`,
		`name="newsletter" type="checkbox" value="true" role="switch" class="formbind-toggle" checked`,
	} {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, html)
		}
	}
}

func TestGenerateMapsErrorPayload(t *testing.T) {
	orch, renderer := captureOrchestrator()
	_, err := orch.Generate(context.Background(), orchestrator.Request{
		Document:    signupDocument(t),
		OperationID: "createUser",
		Values: map[string]any{
			"name":   "Ada",
			"emails": []any{map[string]any{"address": "ada@example.com"}},
		},
		Errors: map[string][]string{
			"/emails/0/address": {"already registered"},
			"":                  {"try again later"},
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if diff := cmp.Diff([]string{"try again later"}, renderer.form.Errors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	email := view.Find(renderer.form.Nodes, fieldpath.Of("emails", 0, "address"))
	if email == nil {
		t.Fatalf("emails.0.address not rendered: %v", fieldNames(renderer.form.Nodes))
	}
	if diff := cmp.Diff([]string{"already registered"}, email.Errors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if email.Value != "ada@example.com" {
		t.Fatalf("prefill missing, got %v", email.Value)
	}
	if email.Prop("label") != "Email" {
		t.Fatalf("expected schema title as label, got %q", email.Prop("label"))
	}
}

func TestBindBareJSONSchema(t *testing.T) {
	orch, _ := captureOrchestrator()
	doc := testsupport.Document(t, "profile.yaml", testsupport.ProfileSchema)
	bound, err := orch.Bind(context.Background(), orchestrator.Request{Document: &doc})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if bound.Meta.Title != "Profile" || bound.Meta.Method != "POST" {
		t.Fatalf("unexpected meta %+v", bound.Meta)
	}

	form, err := orch.Settle(context.Background(), bound, nil)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := []string{"displayName", "age", "bio", "settings"}
	if diff := cmp.Diff(want, fieldNames(form.Nodes)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	settings := view.Find(form.Nodes, fieldpath.Of("settings"))
	if settings.Prop("widget") != "json-editor" {
		t.Fatalf("expected json-editor for a free-form object, got %q", settings.Prop("widget"))
	}
	bio := view.Find(form.Nodes, fieldpath.Of("bio"))
	if bio.Props["multiline"] != true {
		t.Fatalf("expected multiline hint on bio, got %v", bio.Props)
	}
	if !view.Find(form.Nodes, fieldpath.Of("displayName")).Required {
		t.Fatalf("displayName should be required")
	}
}

func TestBindSubmitRunsSchemaValidation(t *testing.T) {
	orch, _ := captureOrchestrator()
	bound, err := orch.Bind(context.Background(), orchestrator.Request{Document: signupDocument(t)})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := orch.Settle(context.Background(), bound, nil); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := bound.Form.Store().SetValue(fieldpath.Of("name"), "A"); err != nil {
		t.Fatalf("set: %v", err)
	}

	_, err = bound.Form.Submit(context.Background())
	var submitErr *binding.SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if len(submitErr.Messages(fieldpath.Of("name"))) == 0 {
		t.Fatalf("expected a length message for name, got %v", submitErr)
	}
	if len(submitErr.Messages(fieldpath.Of("emails"))) == 0 {
		t.Fatalf("expected a message for the empty email list, got %v", submitErr)
	}
}

func TestBindWithJSONSchemaValidator(t *testing.T) {
	orch, _ := captureOrchestrator(orchestrator.WithValidatorFactory(orchestrator.JSONSchemaValidator))
	doc := testsupport.Document(t, "profile.yaml", testsupport.ProfileSchema)
	bound, err := orch.Bind(context.Background(), orchestrator.Request{
		Document: &doc,
		Values:   map[string]any{"displayName": "Ada Lovelace", "age": 36},
	})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := orch.Settle(context.Background(), bound, nil); err != nil {
		t.Fatalf("settle: %v", err)
	}
	got, err := bound.Form.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got["displayName"] != "Ada Lovelace" {
		t.Fatalf("unexpected submitted value %v", got)
	}
}

func TestGenerateUnknownOperation(t *testing.T) {
	orch, _ := captureOrchestrator()
	_, err := orch.Generate(context.Background(), orchestrator.Request{Document: signupDocument(t), OperationID: "deleteUser"})
	if !errors.Is(err, pkgopenapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestGenerateRequiresDocument(t *testing.T) {
	orch, _ := captureOrchestrator()
	if _, err := orch.Generate(context.Background(), orchestrator.Request{}); err == nil {
		t.Fatalf("expected an error without source or document")
	}
}

func TestGenerateResolvesTheme(t *testing.T) {
	selector := orchestrator.NewManifestSelector(&theme.Manifest{
		Name:      "acme",
		Tokens:    map[string]string{"brand": "#123456"},
		Templates: map[string]string{"forms.input": "themes/acme/input.tmpl"},
		Variants: map[string]theme.Variant{
			"dark": {Tokens: map[string]string{"brand": "#000000"}},
		},
	})
	orch, renderer := captureOrchestrator(
		orchestrator.WithThemeSelector(selector),
		orchestrator.WithDefaultTheme("acme", ""),
	)

	if _, err := orch.Generate(context.Background(), orchestrator.Request{Document: signupDocument(t), ThemeVariant: "dark"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	cfg := renderer.options.Theme
	if cfg == nil {
		t.Fatalf("expected theme config passed to renderer")
	}
	if cfg.Theme != "acme" || cfg.Variant != "dark" {
		t.Fatalf("unexpected selection %s/%s", cfg.Theme, cfg.Variant)
	}
	if cfg.CSSVars["--brand"] != "#000000" {
		t.Fatalf("variant tokens should win, got %q", cfg.CSSVars["--brand"])
	}
	if cfg.Partials["forms.input"] != "themes/acme/input.tmpl" {
		t.Fatalf("theme template missing, got %q", cfg.Partials["forms.input"])
	}
	if cfg.Partials["forms.textarea"] != render.DefaultThemeFallbacks()["forms.textarea"] {
		t.Fatalf("fallback partial not applied for textarea")
	}

	_, err := orch.Generate(context.Background(), orchestrator.Request{Document: signupDocument(t), ThemeVariant: "neon"})
	if err == nil || !strings.Contains(err.Error(), `no variant "neon"`) {
		t.Fatalf("expected unknown variant error, got %v", err)
	}
}

func TestManifestSelectorDefaultsToFirstName(t *testing.T) {
	selector := orchestrator.NewManifestSelector(&theme.Manifest{Name: "zen"}, &theme.Manifest{Name: "acme"}, nil)
	selection, err := selector.Select("", "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selection.Theme != "acme" {
		t.Fatalf("expected acme, got %s", selection.Theme)
	}
	if _, err := selector.Select("missing", ""); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
	if _, err := orchestrator.NewManifestSelector().Select("", ""); err == nil {
		t.Fatalf("expected error without manifests")
	}
}

func TestControlPropsHumanizesNames(t *testing.T) {
	cases := map[string]string{
		"first_name": "First Name",
		"firstName":  "First Name",
		"zip-code":   "Zip Code",
		"email":      "Email",
	}
	for name, want := range cases {
		if got := orchestrator.ControlProps(name, schema.Schema{})["label"]; got != want {
			t.Fatalf("label(%q) = %v, want %q", name, got, want)
		}
	}
	props := orchestrator.ControlProps("tags", schema.Schema{
		Type:  schema.TypeArray,
		Items: &schema.Schema{Type: schema.TypeString, Enum: []any{"go"}},
	})
	if diff := cmp.Diff([]any{"go"}, props["options"]); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}
