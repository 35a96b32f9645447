package binding

import (
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/store"
)

// NormalizeFunc rewrites a value before it is stored. Values pass through
// unchanged when no normalizer is configured.
type NormalizeFunc = store.NormalizeFunc

// EmptyAsNil stores empty (or whitespace only) strings as nil so that an
// untouched text control counts as a missing value. It is opt-in.
func EmptyAsNil(_ fieldpath.Path, value any) any {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return value
}

// TrimSpace trims surrounding whitespace from string values.
func TrimSpace(_ fieldpath.Path, value any) any {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

// Chain applies normalizers left to right.
func Chain(fns ...NormalizeFunc) NormalizeFunc {
	return func(path fieldpath.Path, value any) any {
		for _, fn := range fns {
			if fn != nil {
				value = fn(path, value)
			}
		}
		return value
	}
}
