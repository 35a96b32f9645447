// Package vanilla renders a bound node tree as a plain HTML form. Field
// names are the dotted full paths of the bindings, so a submitted form
// decodes back onto the same paths.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"
	"github.com/goliatone/go-template/templatehooks"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/render"
	rendertemplate "github.com/goliatone/go-formbind/pkg/render/template"
	"github.com/goliatone/go-formbind/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla/components"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	components       *components.Registry
	classes          ChromeClasses
	policy           *bluemonday.Policy
	inlineStyles     bool
	submitLabel      string
	postHooks        []gotemplatepkg.PostHook
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponents replaces the component registry.
func WithComponents(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.components = registry
		}
	}
}

// WithChromeClasses overrides the classes of the surrounding markup.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// WithSanitizer replaces the policy applied to descriptions and help text.
// The default is bluemonday's UGC policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithInlineStyles toggles embedding the bundled stylesheet.
func WithInlineStyles(enabled bool) Option {
	return func(cfg *config) {
		cfg.inlineStyles = enabled
	}
}

// WithSubmitLabel sets the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if label = strings.TrimSpace(label); label != "" {
			cfg.submitLabel = label
		}
	}
}

// WithPostHook adds a go-template post hook to the built-in engine. Hooks
// see every template output, components included. Ignored when
// WithTemplateRenderer supplies the engine.
func WithPostHook(hook gotemplatepkg.PostHook) Option {
	return func(cfg *config) {
		if hook != nil {
			cfg.postHooks = append(cfg.postHooks, hook)
		}
	}
}

// WithBanner writes text as an HTML comment ahead of the form element.
func WithBanner(text string) Option {
	return func(cfg *config) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		cfg.postHooks = append(cfg.postHooks, templatehooks.NewCommonHooks().AddLicenseHook(text,
			templatehooks.WithLicenseCommentStyle(templatehooks.CommentBlockStyle{Start: "<!--", LinePrefix: "  ", End: "-->"}),
			templatehooks.WithLicenseCondition(isFormDocument),
		))
	}
}

// isFormDocument matches the outer form template; component snippets are
// rendered with a "field" payload instead.
func isFormDocument(ctx *gotemplatepkg.HookContext) bool {
	data, ok := ctx.Data.(map[string]any)
	if !ok {
		return false
	}
	_, ok = data["form"]
	return ok
}

type Renderer struct {
	templates    rendertemplate.TemplateRenderer
	components   *components.Registry
	classes      ChromeClasses
	policy       *bluemonday.Policy
	inlineStyles bool
	submitLabel  string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:   TemplatesFS(),
		inlineStyles: true,
		submitLabel:  "Submit",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.components == nil {
		cfg.components = components.NewDefaultRegistry()
	}
	if cfg.policy == nil {
		cfg.policy = bluemonday.UGCPolicy()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engineOpts := []gotemplate.Option{
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		}
		for _, hook := range cfg.postHooks {
			engineOpts = append(engineOpts, gotemplate.WithPostHook(hook))
		}
		engine, err := gotemplate.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:    renderer,
		components:   cfg.components,
		classes:      cfg.classes.withDefaults(),
		policy:       cfg.policy,
		inlineStyles: cfg.inlineStyles,
		submitLabel:  cfg.submitLabel,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes form as HTML. The node tree is copied before translation so
// the caller's snapshot is left untouched.
func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := cloneTree(form.Nodes)
	render.Localize(nodes, options)

	var partials map[string]string
	if options.Theme != nil {
		partials = options.Theme.Partials
	}
	tree := newTreeRenderer(r.templates, r.components, partials, r.policy, r.classes)
	body, err := tree.render(nodes)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: %w", err)
	}

	method := options.EffectiveMethod(form)
	hidden := append([]render.HiddenField(nil), options.Hidden...)
	if override, ok := render.MethodOverride(method); ok {
		hidden = append(hidden, override)
		method = "POST"
	}

	stylesheets, scripts := tree.assets()
	if options.Theme != nil && options.Theme.AssetURL != nil {
		if href := options.Theme.AssetURL("vanilla.stylesheet"); href != "" {
			stylesheets = append([]string{href}, stylesheets...)
		}
	}
	inline := ""
	if r.inlineStyles {
		inline = defaultStylesheet()
	}

	formTemplate := "templates/form.tmpl"
	if candidate := strings.TrimSpace(partials["forms.form"]); candidate != "" {
		formTemplate = candidate
	}

	result, err := r.templates.RenderTemplate(formTemplate, map[string]any{
		"form": map[string]any{
			"id":          form.ID,
			"title":       form.Title,
			"description": r.policy.Sanitize(form.Description),
			"action":      form.Action,
			"errors":      form.Errors,
		},
		"method":       method,
		"hidden":       hiddenData(render.SortedHiddenFields(hidden...)),
		"body":         body,
		"classes":      r.classes.templateData(),
		"submitLabel":  r.submitLabel,
		"stylesheets":  stylesheets,
		"scripts":      scriptData(scripts),
		"inlineStyles": inline,
		"cssVars":      cssVars(options),
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func hiddenData(fields []render.HiddenField) []map[string]any {
	out := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		out = append(out, map[string]any{"name": field.Name, "value": field.Value})
	}
	return out
}

func scriptData(scripts []components.Script) []map[string]any {
	out := make([]map[string]any, 0, len(scripts))
	for _, script := range scripts {
		out = append(out, map[string]any{
			"src":    script.Src,
			"inline": script.Inline,
			"defer":  script.Defer,
			"async":  script.Async,
			"module": script.Module,
		})
	}
	return out
}

func cssVars(options render.RenderOptions) string {
	if options.Theme == nil || len(options.Theme.CSSVars) == 0 {
		return ""
	}
	names := make([]string, 0, len(options.Theme.CSSVars))
	for name := range options.Theme.CSSVars {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(options.Theme.CSSVars[name])
		b.WriteByte(';')
	}
	return b.String()
}
