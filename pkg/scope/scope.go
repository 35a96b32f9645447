// Package scope carries the current path prefix through a render pass.
//
// The prefix lives in the context: Provide returns a derived context for a
// subtree and Read returns the nearest provided prefix. Nested providers
// shadow outer ones.
package scope

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

type prefixKey struct{}

// Read returns the nearest enclosing prefix, or the empty path.
func Read(ctx context.Context) fieldpath.Path {
	if ctx == nil {
		return fieldpath.Path{}
	}
	if prefix, ok := ctx.Value(prefixKey{}).(fieldpath.Path); ok {
		return prefix
	}
	return fieldpath.Path{}
}

// Provide establishes prefix for everything rendered with the returned
// context.
func Provide(ctx context.Context, prefix fieldpath.Path) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if prefix == nil {
		prefix = fieldpath.Path{}
	}
	return context.WithValue(ctx, prefixKey{}, prefix)
}

// Resolve composes the ambient prefix with a relative path.
func Resolve(ctx context.Context, relative fieldpath.Path) fieldpath.Path {
	return fieldpath.Compose(Read(ctx), relative)
}
