// Package orchestrator turns a schema document into a bound form: it loads
// the document, picks the OpenAPI operation (or takes a bare JSON Schema),
// derives the path universe and validator, binds every property through
// Layout and renders the settled tree with a registered renderer.
package orchestrator
