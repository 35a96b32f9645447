package render

import (
	"strings"

	theme "github.com/goliatone/go-theme"
)

// RenderOptions carry per-request data renderers use without touching the
// bound tree.
type RenderOptions struct {
	// Method overrides Form.Method. HTML renderers translate verbs browsers
	// cannot submit into POST plus a hidden _method input.
	Method string
	// Hidden fields are emitted alongside the controls.
	Hidden []HiddenField
	// Locale selects translations for *Key props.
	Locale string
	// Translator resolves *Key props. Nil leaves fallbacks in place.
	Translator Translator
	// OnMissing decides the text used when a translation is missing.
	OnMissing MissingTranslationHandler
	// Theme carries resolved tokens, partial overrides and asset URLs.
	Theme *theme.RendererConfig
}

// EffectiveMethod returns the override or the form's own method, upper
// cased, defaulting to POST.
func (o RenderOptions) EffectiveMethod(form Form) string {
	method := o.Method
	if method == "" {
		method = form.Method
	}
	if method == "" {
		return "POST"
	}
	return strings.ToUpper(method)
}
