// Package binding binds field paths of a form value to rendered controls.
//
// A Form owns the store, the render runtime, the optional validator and the
// precomputed required-field set. Item binds one path to one control; List
// projects an array field into per-item handles. Paths are always full
// paths: an Instance obtained in inherit mode resolves its declared paths
// against the ambient scope prefix, every other binding treats them as
// absolute.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/scope"
	"github.com/goliatone/go-formbind/pkg/shape"
	"github.com/goliatone/go-formbind/pkg/store"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/view"
)

var (
	// ErrNoFormContext is the panic value of Scoped outside a form render.
	ErrNoFormContext = errors.New("binding: no form in context")
	// ErrUnknownPath is the panic value for paths outside the universe when
	// strict paths are enabled.
	ErrUnknownPath = errors.New("binding: path is not part of the form shape")
	// ErrMissingListPath is the panic value of a List without a path.
	ErrMissingListPath = errors.New("binding: list requires a path")
)

// Option configures a Form.
type Option func(*config)

type config struct {
	validator   validation.Validator
	universe    *shape.Universe
	universeSet bool
	normalize   NormalizeFunc
	initial     map[string]any
	logger      *slog.Logger
	strict      bool
	maxPasses   int
}

// WithValidator binds a schema validator to the form.
func WithValidator(v validation.Validator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithUniverse overrides the path universe derived from the value type.
// A nil universe disables path checks.
func WithUniverse(u *shape.Universe) Option {
	return func(c *config) {
		c.universe = u
		c.universeSet = true
	}
}

// WithNormalize sets the form-level normalizer. Field normalizers win.
func WithNormalize(fn NormalizeFunc) Option {
	return func(c *config) {
		c.normalize = fn
	}
}

// WithInitialValues seeds the store.
func WithInitialValues(values map[string]any) Option {
	return func(c *config) {
		c.initial = values
	}
}

// WithLogger sets the logger used for development warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrictPaths makes paths outside the universe panic instead of warn.
func WithStrictPaths(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithMaxPasses bounds the passes Settle renders.
func WithMaxPasses(n int) Option {
	return func(c *config) {
		c.maxPasses = n
	}
}

// core is the type-independent part of a form shared with instances.
type core struct {
	store     *store.Store
	runtime   *view.Runtime
	validator validation.Validator
	universe  *shape.Universe
	normalize NormalizeFunc
	required  []fieldpath.Path
	logger    *slog.Logger
	strict    bool

	warnMu sync.Mutex
	warned map[string]struct{}
}

// Form binds the value type T.
type Form[T any] struct {
	*core
}

// New creates a form for T. The required-field set is computed here by
// validating an empty object; a pending result disables it with a warning.
func New[T any](opts ...Option) (*Form[T], error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	universe := cfg.universe
	if !cfg.universeSet {
		derived, err := deriveUniverse[T]()
		if err != nil {
			return nil, fmt.Errorf("binding: derive universe: %w", err)
		}
		universe = derived
	}

	c := &core{
		store:     store.New(cfg.initial),
		validator: cfg.validator,
		universe:  universe,
		normalize: cfg.normalize,
		logger:    cfg.logger,
		strict:    cfg.strict,
		warned:    make(map[string]struct{}),
	}
	var runtimeOpts []view.RuntimeOption
	if cfg.maxPasses > 0 {
		runtimeOpts = append(runtimeOpts, view.WithMaxPasses(cfg.maxPasses))
	}
	c.runtime = view.NewRuntime(runtimeOpts...)
	c.store.Subscribe(func(store.Change) { c.runtime.Invalidate() })

	required, err := validation.RequiredPaths(context.Background(), cfg.validator)
	switch {
	case errors.Is(err, validation.ErrPending):
		c.logger.Warn("binding: validator is asynchronous, required-field detection disabled")
	case err != nil:
		return nil, fmt.Errorf("binding: %w", err)
	default:
		c.required = required
	}
	return &Form[T]{core: c}, nil
}

// MustNew is New that panics on error.
func MustNew[T any](opts ...Option) *Form[T] {
	form, err := New[T](opts...)
	if err != nil {
		panic(err)
	}
	return form
}

func deriveUniverse[T any]() (*shape.Universe, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	return shape.Derive(t)
}

// Store returns the form-state store.
func (f *Form[T]) Store() *store.Store { return f.store }

// Runtime returns the render runtime.
func (f *Form[T]) Runtime() *view.Runtime { return f.runtime }

// Universe returns the path universe, or nil when paths are unchecked.
func (f *Form[T]) Universe() *shape.Universe { return f.universe }

// RequiredPaths returns the precomputed required-field set.
func (f *Form[T]) RequiredPaths() []fieldpath.Path {
	return append([]fieldpath.Path(nil), f.required...)
}

// Instance returns the binding entry point. In inherit mode declared paths
// are relative to the ambient prefix.
func (f *Form[T]) Instance(inherit bool) *Instance {
	return &Instance{core: f.core, inherit: inherit}
}

// Item binds an absolute path, see Instance.Item.
func (f *Form[T]) Item(props ItemProps) view.Render {
	return f.Instance(false).Item(props)
}

// List binds an absolute array path, see Instance.List.
func (f *Form[T]) List(props ListProps) view.Render {
	return f.Instance(false).List(props)
}

// Render renders root for one pass.
func (f *Form[T]) Render(ctx context.Context, root view.Render) []*view.Node {
	return f.runtime.Pass(f.bind(ctx), f.tracked(root))
}

// Settle renders root until captured list state and store values stop
// changing.
func (f *Form[T]) Settle(ctx context.Context, root view.Render) ([]*view.Node, error) {
	return f.runtime.Settle(f.bind(ctx), f.tracked(root))
}

func (c *core) tracked(root view.Render) view.Render {
	return func(ctx context.Context) []*view.Node {
		c.store.BeginPass()
		defer c.store.EndPass()
		if root == nil {
			return nil
		}
		return root(ctx)
	}
}

type coreKey struct{}

func (c *core) bind(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, coreKey{}, c)
	return scope.Provide(ctx, fieldpath.Path{})
}

func coreFrom(ctx context.Context) *core {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(coreKey{}).(*core)
	return c
}

// Submit validates every mounted field, then the whole value through the
// validator, and decodes the parsed value into T. Field failures are
// returned as *SubmitError.
func (f *Form[T]) Submit(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = store.WithRun(ctx, store.NewRun())

	failed, err := f.store.Validate(ctx)
	if err != nil {
		return zero, fmt.Errorf("binding: submit: %w", err)
	}
	if len(failed) > 0 {
		return zero, &SubmitError{Fields: failed}
	}

	var value any = f.store.Values(true)
	if f.validator != nil {
		result, err := f.validate(ctx)
		if err != nil {
			return zero, fmt.Errorf("binding: submit: %w", err)
		}
		if !result.OK() {
			fields := fieldErrors(result.Issues)
			f.store.SetFieldErrors(fields)
			return zero, &SubmitError{Fields: fields}
		}
		if result.Value != nil {
			value = result.Value
		}
	}
	return decode[T](value)
}

// SubmitProps carries the submit handler a form control wires to.
type SubmitProps struct {
	OnSubmit func(ctx context.Context) error
}

// SubmitProps wires Submit to onValid.
func (f *Form[T]) SubmitProps(onValid func(ctx context.Context, value T) error) SubmitProps {
	return SubmitProps{
		OnSubmit: func(ctx context.Context) error {
			value, err := f.Submit(ctx)
			if err != nil {
				return err
			}
			if onValid == nil {
				return nil
			}
			return onValid(ctx, value)
		},
	}
}

func decode[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	var out T
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("binding: encode value: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("binding: decode value: %w", err)
	}
	return out, nil
}

func fieldErrors(issues validation.Issues) []store.FieldError {
	var out []store.FieldError
	index := make(map[string]int)
	for _, issue := range issues {
		key := issue.Path.Pointer()
		if idx, ok := index[key]; ok {
			out[idx].Messages = append(out[idx].Messages, issue.Message)
			continue
		}
		index[key] = len(out)
		path := issue.Path
		if path == nil {
			path = fieldpath.Path{}
		}
		out = append(out, store.FieldError{Path: path, Messages: []string{issue.Message}})
	}
	return out
}

// SubmitError lists the field messages that blocked a submission.
type SubmitError struct {
	Fields []store.FieldError
}

func (e *SubmitError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		label := fe.Path.String()
		if label == "" {
			label = "form"
		}
		parts = append(parts, label+": "+strings.Join(fe.Messages, ", "))
	}
	return "binding: submit failed: " + strings.Join(parts, "; ")
}

// Messages returns the messages reported for path.
func (e *SubmitError) Messages(path fieldpath.Path) []string {
	for _, fe := range e.Fields {
		if fieldpath.Equal(fe.Path, path) {
			return fe.Messages
		}
	}
	return nil
}
