package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// Rule validates the value of one field. Returning a *RuleError reports a
// field message; any other error aborts the validation run.
type Rule func(ctx context.Context, value any) error

// RuleError is a field-level validation failure.
type RuleError struct {
	Message string
}

func (e *RuleError) Error() string { return e.Message }

// Invalid builds a RuleError.
func Invalid(format string, args ...any) error {
	return &RuleError{Message: fmt.Sprintf(format, args...)}
}

// Required fails on empty values.
func Required(message string) Rule {
	if message == "" {
		message = "value is required"
	}
	return func(_ context.Context, value any) error {
		if IsEmpty(value) {
			return &RuleError{Message: message}
		}
		return nil
	}
}

// Run is one validation run. Rules share work through Memo so a whole-tree
// validation happens once per run however many fields depend on it.
type Run struct {
	mu   sync.Mutex
	memo map[any]*memoEntry
}

type memoEntry struct {
	once  sync.Once
	value any
}

// NewRun starts an empty run.
func NewRun() *Run {
	return &Run{memo: make(map[any]*memoEntry)}
}

// Memo returns the value computed for key during this run, computing it on
// first use.
func (r *Run) Memo(key any, compute func() any) any {
	r.mu.Lock()
	entry, ok := r.memo[key]
	if !ok {
		entry = &memoEntry{}
		r.memo[key] = entry
	}
	r.mu.Unlock()
	entry.once.Do(func() {
		entry.value = compute()
	})
	return entry.value
}

type runKey struct{}

// WithRun attaches run to ctx.
func WithRun(ctx context.Context, run *Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFrom returns the run carried by ctx.
func RunFrom(ctx context.Context) *Run {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(runKey{}).(*Run)
	return run
}

// Validate runs the rules of every registered field, records the resulting
// messages (clearing those of passing fields) and returns the failures. A
// run is attached to ctx unless one is already present.
func (s *Store) Validate(ctx context.Context) ([]FieldError, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if RunFrom(ctx) == nil {
		ctx = WithRun(ctx, NewRun())
	}
	fields := s.Fields()
	results := make([]FieldError, 0, len(fields))
	var failed []FieldError
	for _, field := range fields {
		messages, err := s.runRules(ctx, field)
		if err != nil {
			return nil, err
		}
		results = append(results, FieldError{Path: field.path, Messages: messages})
		if len(messages) > 0 {
			failed = append(failed, FieldError{Path: field.path, Messages: messages})
		}
	}
	s.SetFieldErrors(results)
	return failed, nil
}

// ValidateField runs the rules of the field registered at path and records
// its messages.
func (s *Store) ValidateField(ctx context.Context, path fieldpath.Path) ([]string, error) {
	field, ok := s.Field(path)
	if !ok {
		return nil, fmt.Errorf("store: no field registered at %s", path.String())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if RunFrom(ctx) == nil {
		ctx = WithRun(ctx, NewRun())
	}
	messages, err := s.runRules(ctx, field)
	if err != nil {
		return nil, err
	}
	s.SetFieldErrors([]FieldError{{Path: field.path, Messages: messages}})
	return messages, nil
}

func (s *Store) runRules(ctx context.Context, field *Field) ([]string, error) {
	value, _ := s.Value(field.path)
	var messages []string
	for _, rule := range field.opts.Rules {
		if rule == nil {
			continue
		}
		err := rule(ctx, value)
		if err == nil {
			continue
		}
		var ruleErr *RuleError
		if errors.As(err, &ruleErr) {
			messages = append(messages, ruleErr.Message)
			continue
		}
		return nil, fmt.Errorf("store: validate %s: %w", field.path.String(), err)
	}
	return messages, nil
}
