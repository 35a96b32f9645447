// Package formbind binds schema-described values to typed forms and renders
// them. The root package re-exports the orchestrator entry points so most
// callers need a single import.
package formbind

import (
	"context"
	"io/fs"

	theme "github.com/goliatone/go-theme"

	internalloader "github.com/goliatone/go-formbind/internal/loader"
	internalparser "github.com/goliatone/go-formbind/internal/openapi/parser"
	pkgopenapi "github.com/goliatone/go-formbind/pkg/openapi"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// RenderOptions describes per-request overrides such as prefilled values,
// server errors and theme configuration.
type RenderOptions = render.RenderOptions

// Request is the orchestrator request.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the root package.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// NewLoader constructs a document loader while keeping the concrete type
// hidden.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	return internalloader.New(schema.NewLoaderOptions(options...))
}

// NewParser constructs the OpenAPI parser.
func NewParser(options ...pkgopenapi.ParserOption) pkgopenapi.Parser {
	return internalparser.New(pkgopenapi.NewParserOptions(options...))
}

// GenerateHTML loads source, binds the requested operation (or bare schema)
// and renders it with the named renderer.
func GenerateHTML(ctx context.Context, source schema.Source, operationID, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Source:      source,
		OperationID: operationID,
		Renderer:    rendererName,
	})
}

// GenerateHTMLFromDocument renders a pre-loaded document, bypassing the
// loader.
func GenerateHTMLFromDocument(ctx context.Context, doc schema.Document, operationID, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Document:    &doc,
		OperationID: operationID,
		Renderer:    rendererName,
	})
}

// WithThemeSelector forwards a go-theme selector to the orchestrator.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithThemeManifests registers in-memory manifests and picks the default
// theme and variant.
func WithThemeManifests(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithThemeSelector(orchestrator.NewManifestSelector(manifests...)),
		orchestrator.WithDefaultTheme(defaultTheme, defaultVariant),
	}
}

// WithThemeFallbacks forwards fallback partials used when a theme does not
// provide a template.
func WithThemeFallbacks(fallbacks map[string]string) orchestrator.Option {
	return orchestrator.WithThemeFallbacks(fallbacks)
}

// EmbeddedTemplates exposes the vanilla renderer templates.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the vanilla stylesheet for serving over HTTP:
//
//	mux.Handle("/formbind/", http.StripPrefix("/formbind/", http.FileServerFS(formbind.AssetsFS())))
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
