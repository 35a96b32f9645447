package vanilla_test

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	gotemplatepkg "github.com/goliatone/go-template"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbind/pkg/binding"
	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbind/pkg/view"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

func newRenderer(t *testing.T, options ...vanilla.Option) *vanilla.Renderer {
	t.Helper()
	renderer, err := vanilla.New(append([]vanilla.Option{vanilla.WithInlineStyles(false)}, options...)...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func renderHTML(t *testing.T, renderer *vanilla.Renderer, form render.Form, options render.RenderOptions) string {
	t.Helper()
	out, err := renderer.Render(context.Background(), form, options)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, html)
		}
	}
}

func assertNotContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(html, fragment) {
			t.Fatalf("expected output not to contain %q\n%s", fragment, html)
		}
	}
}

func field(path string, value any, props map[string]any) *view.Node {
	return &view.Node{
		Kind:  view.KindField,
		Key:   path,
		Name:  fieldpath.ParseDotted(path),
		Type:  "string",
		Value: value,
		Props: props,
	}
}

func TestRenderFieldUsesBindingNames(t *testing.T) {
	email := field("emails.0.address", "<ada@example.com>", map[string]any{
		"label":       "Address",
		"format":      "email",
		"description": `<b>Primary</b> inbox<script>alert(1)</script>`,
	})
	email.Required = true
	email.Errors = []string{"must be <unique>"}

	html := renderHTML(t, newRenderer(t), render.Form{ID: "signup", Nodes: []*view.Node{email}}, render.RenderOptions{})

	assertContains(t, html,
		`<form id="signup" method="POST"`,
		`data-path="emails.0.address"`,
		`name="emails.0.address"`,
		`id="fb-emails-0-address"`,
		`type="email"`,
		`value="&lt;ada@example.com&gt;"`,
		`<label for="fb-emails-0-address">Address<span class="formbind-required"`,
		` required`,
		`aria-describedby="fb-emails-0-address-errors"`,
		`<p class="formbind-error" id="fb-emails-0-address-errors" role="alert">must be &lt;unique&gt;</p>`,
		`<b>Primary</b> inbox`,
	)
	assertNotContains(t, html, "<script>alert", "alert(1)")
}

func TestRenderWidgets(t *testing.T) {
	nodes := []*view.Node{
		field("role", "admin", map[string]any{"widget": "select", "options": []any{"user", map[string]any{"value": "admin", "label": "Administrator"}}}),
		field("active", true, map[string]any{"widget": "toggle"}),
		field("tags", []any{"go"}, map[string]any{"widget": "chips", "options": []string{"go", "rust"}}),
		field("settings", map[string]any{"depth": 2}, map[string]any{"widget": "json-editor"}),
		field("bio", "line", map[string]any{"multiline": true}),
	}

	html := renderHTML(t, newRenderer(t), render.Form{Nodes: nodes}, render.RenderOptions{})

	assertContains(t, html,
		`<option value="user">user</option>`,
		`<option value="admin" selected>Administrator</option>`,
		`name="active" type="checkbox" value="true" role="switch"`,
		` checked`,
		`<input type="checkbox" name="tags" value="go" checked>`,
		`<input type="checkbox" name="tags" value="rust">`,
		`data-language="json"`,
		`&quot;depth&quot;: 2`,
		`<textarea id="fb-bio" name="bio" rows="4"`,
		`name="settings" rows="8"`,
		`<script src="/formbind/code-editor.js" defer>`,
	)
	assertNotContains(t, html, `.000000"`)
}

func TestRenderBannerAndPostHooks(t *testing.T) {
	var outputs int
	renderer := newRenderer(t,
		vanilla.WithBanner("Generated by formbind"),
		vanilla.WithPostHook(func(ctx *gotemplatepkg.HookContext) (string, error) {
			outputs++
			return ctx.Output, nil
		}),
	)
	nodes := []*view.Node{field("name", "Ada", nil), field("city", "", nil)}

	html := renderHTML(t, renderer, render.Form{ID: "signup", Nodes: nodes}, render.RenderOptions{})

	banner := "<!--\n  Generated by formbind\n-->\n"
	if !strings.HasPrefix(html, banner) {
		t.Fatalf("expected banner ahead of the form\n%s", html)
	}
	if got := strings.Count(html, "Generated by formbind"); got != 1 {
		t.Fatalf("banner should wrap the form only, found %d copies", got)
	}
	if outputs != 3 {
		t.Fatalf("post hook should see two controls and the form, saw %d outputs", outputs)
	}
}

func TestRenderWithGoTemplateEngine(t *testing.T) {
	engine, err := gotemplatepkg.NewRenderer(
		gotemplatepkg.WithFS(vanilla.TemplatesFS()),
		gotemplatepkg.WithExtension(".tmpl"),
	)
	if err != nil {
		t.Fatalf("go-template engine: %v", err)
	}
	renderer := newRenderer(t, vanilla.WithTemplateRenderer(engine))

	html := renderHTML(t, renderer, render.Form{ID: "signup", Nodes: []*view.Node{field("name", "Ada", nil)}}, render.RenderOptions{})

	assertContains(t, html, `<form id="signup"`, `name="name"`, `value="Ada"`)
}

func TestRenderListAndItems(t *testing.T) {
	list := &view.Node{
		Kind:   view.KindList,
		Key:    "emails",
		Name:   fieldpath.ParseDotted("emails"),
		Errors: []string{"at least one email"},
		Props:  map[string]any{"label": "Emails", "widget": "repeater"},
		Children: []*view.Node{
			{Kind: view.KindItem, Key: "k0", Name: fieldpath.ParseDotted("emails.0"), Children: []*view.Node{field("emails.0.address", "a@x.io", nil)}},
			{Kind: view.KindItem, Key: "k2", Name: fieldpath.ParseDotted("emails.1"), Children: []*view.Node{field("emails.1.address", "b@x.io", nil)}},
		},
	}

	html := renderHTML(t, newRenderer(t), render.Form{Nodes: []*view.Node{list}}, render.RenderOptions{})

	assertContains(t, html,
		`<fieldset class="formbind-list" data-path="emails" data-widget="repeater"><legend>Emails</legend>`,
		`<p class="formbind-error" id="fb-emails-errors" role="alert">at least one email</p>`,
		`<div class="formbind-item" data-key="k0" data-index="0">`,
		`<div class="formbind-item" data-key="k2" data-index="1">`,
		`name="emails.1.address"`,
		`data-action="remove" data-index="1"`,
		`data-action="add" data-path="emails">Add</button>`,
	)
}

func TestRenderMethodOverrideAndHiddenFields(t *testing.T) {
	html := renderHTML(t, newRenderer(t, vanilla.WithSubmitLabel("Save")), render.Form{
		Action: "/users/1",
		Method: "put",
		Errors: []string{"stale <version>"},
	}, render.RenderOptions{
		Method: "patch",
		Hidden: []render.HiddenField{render.CSRFToken("_csrf", "tok"), render.VersionField("version", 7)},
	})

	assertContains(t, html,
		`method="POST" action="/users/1"`,
		`<input type="hidden" name="_csrf" value="tok">`,
		`<input type="hidden" name="_method" value="PATCH">`,
		`<input type="hidden" name="version" value="7">`,
		`<li>stale &lt;version&gt;</li>`,
		`<button type="submit">Save</button>`,
	)
}

func TestRenderLocalizesWithoutMutatingInput(t *testing.T) {
	translator := render.NewCatalogTranslator()
	if err := translator.Add("fr", map[string]string{"name.label": "Nom"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	name := field("name", "", map[string]any{"label": "Name", "labelKey": "name.label"})

	html := renderHTML(t, newRenderer(t), render.Form{Nodes: []*view.Node{name}}, render.RenderOptions{Locale: "fr", Translator: translator})

	assertContains(t, html, `>Nom</label>`)
	if got := name.Prop("label"); got != "Name" {
		t.Fatalf("input node mutated, label=%q", got)
	}
}

func TestRenderThemePartialsAndTokens(t *testing.T) {
	files := fstest.MapFS{}
	err := fs.WalkDir(vanilla.TemplatesFS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(vanilla.TemplatesFS(), path)
		if err != nil {
			return err
		}
		files[path] = &fstest.MapFile{Data: data}
		return nil
	})
	if err != nil {
		t.Fatalf("copy templates: %v", err)
	}
	files["themes/acme/input.tmpl"] = &fstest.MapFile{Data: []byte(`<input class="acme" name="{{ field.name }}">`)}

	cfg := render.ThemeConfig(&theme.Selection{
		Theme: "acme",
		Manifest: &theme.Manifest{
			Name:      "acme",
			Tokens:    map[string]string{"brand": "#123456"},
			Templates: map[string]string{"forms.input": "themes/acme/input.tmpl"},
			Assets: theme.Assets{
				Prefix: "/assets/acme",
				Files:  map[string]string{"vanilla.stylesheet": "acme.css"},
			},
		},
	}, render.DefaultThemeFallbacks())

	html := renderHTML(t, newRenderer(t, vanilla.WithTemplatesFS(files)),
		render.Form{Nodes: []*view.Node{field("name", "", nil)}},
		render.RenderOptions{Theme: cfg})

	assertContains(t, html,
		`<input class="acme" name="name">`,
		`style="--brand:#123456;"`,
		`<link rel="stylesheet" href="/assets/acme/acme.css">`,
	)
}

func TestRenderUnknownWidgetFails(t *testing.T) {
	renderer := newRenderer(t)
	_, err := renderer.Render(context.Background(), render.Form{
		Nodes: []*view.Node{field("name", "", map[string]any{"widget": "rich-text"})},
	}, render.RenderOptions{})
	if err == nil || !strings.Contains(err.Error(), `component "rich-text" not registered`) {
		t.Fatalf("expected unknown component error, got %v", err)
	}
}

func TestRenderInlineStylesAndElements(t *testing.T) {
	renderer, err := vanilla.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	nodes := []*view.Node{
		view.Element("section", map[string]any{"class": "intro", "onclick": "x()", "text": "Hi <you>"}),
	}
	html := renderHTML(t, renderer, render.Form{Nodes: nodes}, render.RenderOptions{})

	assertContains(t, html, `<style>.formbind-form{`, `<section class="intro">Hi &lt;you&gt;</section>`)
	assertNotContains(t, html, "onclick")
}

type profile struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func TestRenderBoundForm(t *testing.T) {
	form := binding.MustNew[profile](binding.WithInitialValues(map[string]any{"name": "Ada", "admin": true}))
	nodes := form.Render(context.Background(), view.Fragment(
		form.Item(binding.ItemProps{Path: "name", Control: map[string]any{"label": "Name"}}),
		form.Item(binding.ItemProps{Path: "admin"}),
	))
	widgets.NewRegistry().Decorate(nodes, form.Universe())

	html := renderHTML(t, newRenderer(t), render.Form{Nodes: nodes}, render.RenderOptions{})

	assertContains(t, html,
		`name="name" type="text" value="Ada"`,
		`data-widget="toggle"`,
		`name="admin" type="checkbox" value="true" role="switch" class="formbind-toggle" checked`,
	)
}
