package template

import (
	"io"

	gotemplate "github.com/goliatone/go-template"
)

// TemplateRenderer is the engine contract renderers depend on. It follows
// the github.com/goliatone/go-template engine surface, so that engine can be
// injected as is.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

var _ TemplateRenderer = (*gotemplate.Engine)(nil)
