// Package render defines the renderer contract for bound node trees and the
// helpers renderers share: error payload mapping, localisation, hidden
// submission fields and subsets.
package render

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/view"
)

// Form is a rendered form snapshot: the node tree of one settled pass plus
// the form-level metadata renderers need.
type Form struct {
	ID          string
	Title       string
	Description string
	Method      string
	Action      string
	Nodes       []*view.Node
	// Errors are form-level messages not attached to any field.
	Errors []string
}

// Renderer converts a Form into bytes (HTML, text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form Form, options RenderOptions) ([]byte, error)
}
