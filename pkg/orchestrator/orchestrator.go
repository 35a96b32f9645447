package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	theme "github.com/goliatone/go-theme"

	internalLoader "github.com/goliatone/go-formbind/internal/loader"
	internalParser "github.com/goliatone/go-formbind/internal/openapi/parser"
	"github.com/goliatone/go-formbind/pkg/binding"
	pkgopenapi "github.com/goliatone/go-formbind/pkg/openapi"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/shape"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/validation"
	jsonschemavalidator "github.com/goliatone/go-formbind/pkg/validation/jsonschema"
	openapivalidator "github.com/goliatone/go-formbind/pkg/validation/openapi"
	"github.com/goliatone/go-formbind/pkg/view"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

const defaultRendererName = "vanilla"

// ValidatorFactory builds the validator bound to a form from its schema.
type ValidatorFactory func(root schema.Schema) (validation.Validator, error)

// OpenAPIValidator validates with kin-openapi. It is the default.
func OpenAPIValidator(root schema.Schema) (validation.Validator, error) {
	return openapivalidator.FromIR(root), nil
}

// JSONSchemaValidator validates with a compiled JSON Schema.
func JSONSchemaValidator(root schema.Schema) (validation.Validator, error) {
	v, err := jsonschemavalidator.FromIR(root)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom document loader.
func WithLoader(loader schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithParser injects a custom OpenAPI parser.
func WithParser(parser pkgopenapi.Parser) Option {
	return func(o *Orchestrator) {
		o.parser = parser
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithWidgets replaces the widget registry used to decorate bound nodes.
func WithWidgets(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		if registry != nil {
			o.widgets = registry
		}
	}
}

// WithValidatorFactory selects how validators are built from schemas.
func WithValidatorFactory(factory ValidatorFactory) Option {
	return func(o *Orchestrator) {
		if factory != nil {
			o.validator = factory
		}
	}
}

// WithSchemaTransformer registers a Transformer run on the request schema
// before binding.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithThemeSelector resolves theme partials, tokens and assets for every
// request through selector.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithDefaultTheme names the theme and variant used when a request omits
// them.
func WithDefaultTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.defaultTheme = name
		o.defaultVariant = variant
	}
}

// WithThemeFallbacks overrides the partials used when a theme omits a
// template.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.themeFallbacks = fallbacks
	}
}

// WithLogger sets the logger handed to bound forms.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the pipeline from a schema document to a bound
// form and its rendered output: load, pick the operation, derive the path
// universe and validator, bind every property, then render.
type Orchestrator struct {
	loader          schema.Loader
	parser          pkgopenapi.Parser
	registry        *render.Registry
	widgets         *widgets.Registry
	validator       ValidatorFactory
	transformer     Transformer
	defaultRenderer string
	themeSelector   theme.ThemeSelector
	defaultTheme    string
	defaultVariant  string
	themeFallbacks  map[string]string
	logger          *slog.Logger
	initialiseErr   error
}

// New constructs an Orchestrator. Missing dependencies get the built-in
// implementations.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs of one form.
type Request struct {
	// Source identifies where the document lives. Optional when Document is
	// supplied.
	Source schema.Source
	// Document bypasses the loader.
	Document *schema.Document
	// OperationID selects the OpenAPI operation. It may be empty when the
	// document has a single operation with a body or is a bare JSON Schema.
	OperationID string
	// Renderer names the renderer; empty selects the default.
	Renderer string
	// Values prefill the form.
	Values map[string]any
	// Errors is a server error payload keyed by field path.
	Errors map[string][]string
	// ThemeName and ThemeVariant override the default theme.
	ThemeName    string
	ThemeVariant string
	// RenderOptions is passed to the renderer. A theme resolved by the
	// orchestrator fills Theme when it is nil.
	RenderOptions render.RenderOptions
}

// Bound is a form bound to a request schema, ready to render or edit.
type Bound struct {
	Form   *binding.Form[map[string]any]
	Root   view.Render
	Schema schema.Schema
	// Meta carries the form-level metadata; Nodes is left empty.
	Meta render.Form
}

// Settle renders the bound tree until it is stable, maps the request error
// payload onto the mounted fields and decorates the nodes with widgets.
func (o *Orchestrator) Settle(ctx context.Context, bound *Bound, errorPayload map[string][]string) (render.Form, error) {
	nodes, err := bound.Form.Settle(ctx, bound.Root)
	if err != nil {
		return render.Form{}, fmt.Errorf("orchestrator: settle form: %w", err)
	}
	out := bound.Meta
	if len(errorPayload) > 0 {
		out.Errors = render.MergeFormErrors(out.Errors, render.ApplyErrors(bound.Form.Store(), errorPayload)...)
		if nodes, err = bound.Form.Settle(ctx, bound.Root); err != nil {
			return render.Form{}, fmt.Errorf("orchestrator: settle form: %w", err)
		}
	}
	o.widgets.Decorate(nodes, bound.Form.Universe())
	out.Nodes = nodes
	return out, nil
}

// Session adapts a bound form for interactive editors. Its Settle decorates
// nodes with widgets like Orchestrator.Settle does.
type Session struct {
	bound   *Bound
	widgets *widgets.Registry
}

// Session wraps bound for an editor such as the tui renderer's Edit.
func (o *Orchestrator) Session(bound *Bound) *Session {
	return &Session{bound: bound, widgets: o.widgets}
}

// Store returns the value store of the bound form.
func (s *Session) Store() *store.Store { return s.bound.Form.Store() }

// Settle settles root and decorates the resulting nodes.
func (s *Session) Settle(ctx context.Context, root view.Render) ([]*view.Node, error) {
	nodes, err := s.bound.Form.Settle(ctx, root)
	if err != nil {
		return nil, err
	}
	s.widgets.Decorate(nodes, s.bound.Form.Universe())
	return nodes, nil
}

// Generate binds the request schema and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	bound, err := o.Bind(ctx, req)
	if err != nil {
		return nil, err
	}
	form, err := o.Settle(ctx, bound, req.Errors)
	if err != nil {
		return nil, err
	}

	options := req.RenderOptions
	if options.Theme == nil && o.themeSelector != nil {
		cfg, err := render.ResolveTheme(o.themeSelector, firstNonEmpty(req.ThemeName, o.defaultTheme), firstNonEmpty(req.ThemeVariant, o.defaultVariant), o.themeFallbacks)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: %w", err)
		}
		options.Theme = cfg
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, form, options)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Bind loads the document, selects the request schema and binds it to a new
// form. The form is not rendered yet.
func (o *Orchestrator) Bind(ctx context.Context, req Request) (*Bound, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	root, meta, err := o.requestSchema(ctx, doc, req.OperationID)
	if err != nil {
		return nil, err
	}

	root = root.Clone()
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &root); err != nil {
			return nil, fmt.Errorf("orchestrator: transform schema: %w", err)
		}
	}

	validator, err := o.validator(root)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build validator: %w", err)
	}
	form, err := binding.New[map[string]any](
		binding.WithValidator(validator),
		binding.WithUniverse(shape.FromSchema(root)),
		binding.WithInitialValues(req.Values),
		binding.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: bind form: %w", err)
	}

	o.logger.Debug("orchestrator: form bound", "id", meta.ID, "paths", len(form.Universe().Paths()))
	return &Bound{
		Form:   form,
		Root:   Layout(form.Instance(false), root),
		Schema: root,
		Meta:   meta,
	}, nil
}

// requestSchema returns the body schema of the selected operation, or the
// whole document when it is a bare JSON Schema.
func (o *Orchestrator) requestSchema(ctx context.Context, doc schema.Document, operationID string) (schema.Schema, render.Form, error) {
	if !pkgopenapi.Detect(doc.Raw()) {
		root, err := schema.Decode(doc)
		if err != nil {
			return schema.Schema{}, render.Form{}, fmt.Errorf("orchestrator: decode schema: %w", err)
		}
		return root, render.Form{
			ID:          operationID,
			Title:       root.Title,
			Description: root.Description,
			Method:      "POST",
		}, nil
	}

	operations, err := o.parser.Operations(ctx, doc)
	if err != nil {
		return schema.Schema{}, render.Form{}, fmt.Errorf("orchestrator: parse operations: %w", err)
	}
	op, err := pkgopenapi.Select(operations, operationID)
	if err != nil {
		return schema.Schema{}, render.Form{}, fmt.Errorf("orchestrator: %w", err)
	}
	title := op.Summary
	if title == "" {
		title = op.RequestBody.Title
	}
	return op.RequestBody, render.Form{
		ID:          op.ID,
		Title:       title,
		Description: op.Description,
		Method:      op.Method,
		Action:      op.Path,
	}, nil
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (schema.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return schema.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}

// Renderer returns the named renderer, or the default one for "".
func (o *Orchestrator) Renderer(name string) (render.Renderer, error) {
	return o.rendererFor(name)
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.loader == nil {
		o.loader = internalLoader.New(schema.NewLoaderOptions())
	}
	if o.parser == nil {
		o.parser = internalParser.New(pkgopenapi.NewParserOptions())
	}
	if o.widgets == nil {
		o.widgets = widgets.NewRegistry()
	}
	if o.validator == nil {
		o.validator = OpenAPIValidator
	}
	if o.themeFallbacks == nil {
		o.themeFallbacks = render.DefaultThemeFallbacks()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
