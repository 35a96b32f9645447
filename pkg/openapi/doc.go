// Package openapi exposes the parser contract that turns OpenAPI documents
// into operations whose request bodies are expressed in the schema IR. The
// kin-openapi implementation lives under internal/openapi.
package openapi
