// Package validation defines the validator contract the binding layer
// consumes: a whole-tree validation returning either a parsed value or a
// list of path-addressed issues, possibly asynchronously.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// Issue codes shared by the adapters. Adapters may emit other codes (for
// example the failing keyword name).
const (
	CodeRequired = "required"
	CodeType     = "type"
	CodeCustom   = "custom"
)

// ErrPending is returned by operations that cannot wait on an asynchronous
// validator result.
var ErrPending = errors.New("validation: validator returned a pending result")

// Issue is one validation failure anchored at a path of the input.
type Issue struct {
	Path    fieldpath.Path `json:"path"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
}

// Issues is returned as an error by helpers that surface failures.
type Issues []Issue

func (is Issues) Error() string {
	if len(is) == 0 {
		return "validation: no issues"
	}
	parts := make([]string, 0, len(is))
	for _, issue := range is {
		if len(issue.Path) == 0 {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path.String(), issue.Message))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// At returns the issues whose path equals path.
func (is Issues) At(path fieldpath.Path) Issues {
	var out Issues
	for _, issue := range is {
		if fieldpath.Equal(issue.Path, path) {
			out = append(out, issue)
		}
	}
	return out
}

// First returns the first issue whose path equals path.
func (is Issues) First(path fieldpath.Path) (Issue, bool) {
	for _, issue := range is {
		if fieldpath.Equal(issue.Path, path) {
			return issue, true
		}
	}
	return Issue{}, false
}

// Result is a settled validation: Value holds the parsed output when there
// are no issues.
type Result struct {
	Value  any
	Issues Issues
}

// OK reports whether the result carries no issues.
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Validator validates a whole value tree.
type Validator interface {
	Validate(ctx context.Context, input any) Outcome
}

// Func adapts a synchronous function to the Validator interface.
type Func func(ctx context.Context, input any) (Result, error)

// Validate implements Validator.
func (fn Func) Validate(ctx context.Context, input any) Outcome {
	result, err := fn(ctx, input)
	if err != nil {
		return Failed(err)
	}
	return Ready(result)
}

// Refine runs check on the parsed value once base succeeds and reports the
// returned issues. It is how cross-field rules are layered on a schema.
func Refine(base Validator, check func(ctx context.Context, value any) Issues) Validator {
	return refined{base: base, check: check}
}

type refined struct {
	base  Validator
	check func(ctx context.Context, value any) Issues
}

func (r refined) Validate(ctx context.Context, input any) Outcome {
	outcome := r.base.Validate(ctx, input)
	apply := func(result Result, err error) (Result, error) {
		if err != nil || !result.OK() || r.check == nil {
			return result, err
		}
		value := result.Value
		if value == nil {
			value = input
		}
		if issues := r.check(ctx, value); len(issues) > 0 {
			return Result{Issues: issues}, nil
		}
		return result, nil
	}
	if settled, ok, err := outcome.Settled(); ok {
		result, err := apply(settled, err)
		if err != nil {
			return Failed(err)
		}
		return Ready(result)
	}
	return Go(func() (Result, error) {
		return apply(outcome.Await(ctx))
	})
}

// Async wraps v so that every validation runs on its own goroutine and is
// reported as pending.
func Async(v Validator) Validator {
	return asyncValidator{inner: v}
}

type asyncValidator struct{ inner Validator }

func (a asyncValidator) Validate(ctx context.Context, input any) Outcome {
	return Go(func() (Result, error) {
		return a.inner.Validate(ctx, input).Await(ctx)
	})
}

// RequiredPaths validates an empty object and collects the paths of the
// required issues, in report order and without duplicates. A pending result
// yields ErrPending; it is never awaited.
func RequiredPaths(ctx context.Context, v Validator) ([]fieldpath.Path, error) {
	if v == nil {
		return nil, nil
	}
	outcome := v.Validate(ctx, map[string]any{})
	result, ok, err := outcome.Settled()
	if !ok {
		return nil, ErrPending
	}
	if err != nil {
		return nil, fmt.Errorf("validation: required probe: %w", err)
	}
	paths := make([]fieldpath.Path, 0)
	for _, issue := range result.Issues {
		if issue.Code != CodeRequired {
			continue
		}
		if containsPath(paths, issue.Path) {
			continue
		}
		paths = append(paths, issue.Path)
	}
	return paths, nil
}

// ContainsPath reports whether paths holds a path equal to path.
func ContainsPath(paths []fieldpath.Path, path fieldpath.Path) bool {
	return containsPath(paths, path)
}

func containsPath(paths []fieldpath.Path, path fieldpath.Path) bool {
	for _, candidate := range paths {
		if fieldpath.Equal(candidate, path) {
			return true
		}
	}
	return false
}
