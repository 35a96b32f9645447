package binding

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/scope"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/validation"
)

// Instance creates Item and List bindings for one form.
type Instance struct {
	core    *core
	inherit bool
}

// Scoped returns an Instance for the form rendering ctx. It panics with
// ErrNoFormContext outside a form render.
func Scoped(ctx context.Context, inherit bool) *Instance {
	c := coreFrom(ctx)
	if c == nil {
		panic(ErrNoFormContext)
	}
	return &Instance{core: c, inherit: inherit}
}

// Inherit reports whether declared paths are resolved against the ambient
// prefix.
func (in *Instance) Inherit() bool { return in.inherit }

// Resolve returns the full path a declared path binds to under ctx.
func (in *Instance) Resolve(ctx context.Context, declared fieldpath.Path) fieldpath.Path {
	if !in.inherit {
		return declared
	}
	prefix := scope.Read(ctx)
	if len(prefix) > 0 && len(declared) >= len(prefix) && fieldpath.HasPrefix(declared, prefix) {
		in.core.warnOnce("binding: declared path already starts with the ambient prefix (duplicate prefix)",
			"path", declared.String(), "prefix", prefix.String())
	}
	return fieldpath.Compose(prefix, declared)
}

func (c *core) checkPath(full fieldpath.Path) {
	if c.universe == nil || c.universe.Contains(full) {
		return
	}
	if c.strict {
		panic(fmt.Errorf("%w: %s", ErrUnknownPath, full.String()))
	}
	c.warnOnce("binding: path is not part of the form shape", "path", full.String())
}

func (c *core) warnOnce(msg string, args ...any) {
	key := fmt.Sprint(append([]any{msg}, args...)...)
	c.warnMu.Lock()
	_, seen := c.warned[key]
	c.warned[key] = struct{}{}
	c.warnMu.Unlock()
	if !seen {
		c.logger.Warn(msg, args...)
	}
}

func (c *core) isRequired(full fieldpath.Path) bool {
	return validation.ContainsPath(c.required, full)
}

func (c *core) kindOf(full fieldpath.Path) string {
	if c.universe == nil {
		return ""
	}
	entry, ok := c.universe.Lookup(full)
	if !ok {
		return ""
	}
	return string(entry.Kind)
}

type memoResult struct {
	result validation.Result
	err    error
}

// validate runs the validator over the whole value tree once per store
// validation run carried by ctx.
func (c *core) validate(ctx context.Context) (validation.Result, error) {
	compute := func() any {
		result, err := c.validator.Validate(ctx, c.store.Values(true)).Await(ctx)
		return memoResult{result: result, err: err}
	}
	var memo memoResult
	if run := store.RunFrom(ctx); run != nil {
		memo, _ = run.Memo(c, compute).(memoResult)
	} else {
		memo, _ = compute().(memoResult)
	}
	return memo.result, memo.err
}

// schemaRule fails with the message of the first issue reported at full.
func (c *core) schemaRule(full fieldpath.Path) store.Rule {
	return func(ctx context.Context, _ any) error {
		result, err := c.validate(ctx)
		if err != nil {
			return err
		}
		if issue, ok := result.Issues.First(full); ok {
			return &store.RuleError{Message: issue.Message}
		}
		return nil
	}
}

func (c *core) rules(full fieldpath.Path, explicit []store.Rule) []store.Rule {
	rules := append([]store.Rule(nil), explicit...)
	if c.validator != nil {
		rules = append(rules, c.schemaRule(full))
	}
	return rules
}
