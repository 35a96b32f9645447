// Package store is the form-state store bound fields register against: a
// value tree addressed by field paths, per-field errors, validation rules
// and the array-field primitive used for dynamic lists.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// ErrNotFound is returned when no value is stored at a path.
var ErrNotFound = errors.New("store: no value at path")

// NormalizeFunc rewrites a value before it is stored.
type NormalizeFunc func(path fieldpath.Path, value any) any

// FieldOptions configures a registered field.
type FieldOptions struct {
	Rules     []Rule
	Normalize NormalizeFunc
	// Initial seeds the value when the store holds none at the path.
	Initial  any
	Required bool
}

// FieldError groups the messages attached to one path.
type FieldError struct {
	Path     fieldpath.Path `json:"path"`
	Messages []string       `json:"messages"`
}

// Change is published after a value write.
type Change struct {
	Path  fieldpath.Path
	Value any
}

// Store holds the value tree and the fields mounted in the current pass.
type Store struct {
	mu        sync.Mutex
	values    map[string]any
	errors    map[string]FieldError
	fields    map[string]*Field
	order     []string
	arrays    map[string]*arrayState
	pass      int
	listeners map[int]func(Change)
	nextID    int
}

// New creates a store seeded with a copy of initial.
func New(initial map[string]any) *Store {
	return &Store{
		values:    cloneValues(initial),
		errors:    make(map[string]FieldError),
		fields:    make(map[string]*Field),
		arrays:    make(map[string]*arrayState),
		listeners: make(map[int]func(Change)),
	}
}

// Field is a registered binding point.
type Field struct {
	store *Store
	path  fieldpath.Path
	key   string
	opts  FieldOptions
	pass  int
}

// Path returns the full path the field is registered at.
func (f *Field) Path() fieldpath.Path { return f.path }

// Value returns the stored value.
func (f *Field) Value() any {
	value, _ := f.store.Value(f.path)
	return value
}

// Set writes a value through the field's normalizer.
func (f *Field) Set(value any) error { return f.store.SetValue(f.path, value) }

// Errors returns the messages attached to the field.
func (f *Field) Errors() []string { return f.store.Errors(f.path) }

// Required reports the required flag the field was registered with.
func (f *Field) Required() bool { return f.opts.Required }

type registrationKey struct{}

// RegistrationPrefix returns the prefix applied to registrations made with
// ctx (set by ArrayField.Render).
func RegistrationPrefix(ctx context.Context) fieldpath.Path {
	if ctx == nil {
		return nil
	}
	prefix, _ := ctx.Value(registrationKey{}).(fieldpath.Path)
	return prefix
}

func withRegistrationPrefix(ctx context.Context, prefix fieldpath.Path) context.Context {
	return context.WithValue(ctx, registrationKey{}, prefix)
}

// Register mounts a field for the current pass. The path is composed with
// the registration prefix carried by ctx. When the field is newly mounted
// and no value is stored yet, opts.Initial is written without publishing a
// change.
func (s *Store) Register(ctx context.Context, path fieldpath.Path, opts FieldOptions) *Field {
	full := fieldpath.Compose(RegistrationPrefix(ctx), path)
	key := pathKey(full)

	s.mu.Lock()
	defer s.mu.Unlock()

	field, mounted := s.fields[key]
	if !mounted {
		field = &Field{store: s, path: full.Clone(), key: key}
		s.fields[key] = field
		s.order = append(s.order, key)
	}
	field.opts = opts
	field.pass = s.pass

	if !mounted && opts.Initial != nil && len(full) > 0 {
		if _, exists := getIn(s.values, full); !exists {
			if updated, err := setIn(s.values, full, deepCopy(opts.Initial)); err == nil {
				s.values = updated.(map[string]any)
			}
		}
	}
	return field
}

// Field returns the field registered at path.
func (s *Store) Field(path fieldpath.Path) (*Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := s.fields[pathKey(path)]
	return field, ok
}

// Fields returns the registered fields in registration order.
func (s *Store) Fields() []*Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Field, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.fields[key])
	}
	return out
}

// BeginPass starts mount tracking for a render pass.
func (s *Store) BeginPass() {
	s.mu.Lock()
	s.pass++
	s.mu.Unlock()
}

// EndPass unmounts every field not registered since BeginPass.
func (s *Store) EndPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, key := range s.order {
		if s.fields[key].pass == s.pass {
			kept = append(kept, key)
			continue
		}
		delete(s.fields, key)
	}
	s.order = kept
}

// Value returns the value stored at path.
func (s *Store) Value(path fieldpath.Path) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := getIn(s.values, path)
	return deepCopy(value), ok
}

// ValueAs returns the value at path converted to V, directly when the
// stored value already has that type and through JSON otherwise.
func ValueAs[V any](s *Store, path fieldpath.Path) (V, error) {
	var zero V
	value, ok := s.Value(path)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, path.String())
	}
	if typed, ok := value.(V); ok {
		return typed, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("store: encode %s: %w", path.String(), err)
	}
	var out V
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("store: decode %s: %w", path.String(), err)
	}
	return out, nil
}

// Values returns a copy of the value tree. Unless includeAll is set only
// the values at registered field paths are included.
func (s *Store) Values(includeAll bool) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if includeAll {
		return cloneValues(s.values)
	}
	var out any = make(map[string]any)
	for _, key := range s.order {
		field := s.fields[key]
		value, ok := getIn(s.values, field.path)
		if !ok {
			continue
		}
		if updated, err := setIn(out, field.path, deepCopy(value)); err == nil {
			out = updated
		}
	}
	if m, ok := out.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}

// SetValue writes value at path, applying the normalizer of the field
// registered there, and publishes the change.
func (s *Store) SetValue(path fieldpath.Path, value any) error {
	s.mu.Lock()
	if field, ok := s.fields[pathKey(path)]; ok && field.opts.Normalize != nil {
		value = field.opts.Normalize(path, value)
	}
	if len(path) == 0 {
		root, ok := value.(map[string]any)
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("store: root value must be an object, got %T", value)
		}
		s.values = cloneValues(root)
	} else {
		updated, err := setIn(s.values, path, deepCopy(value))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("store: set %s: %w", path.String(), err)
		}
		s.values = updated.(map[string]any)
	}
	s.mu.Unlock()
	s.publish(Change{Path: path.Clone(), Value: value})
	return nil
}

// Reset replaces the value tree and clears every error.
func (s *Store) Reset(values map[string]any) {
	s.mu.Lock()
	s.values = cloneValues(values)
	s.errors = make(map[string]FieldError)
	s.arrays = make(map[string]*arrayState)
	s.mu.Unlock()
	s.publish(Change{Path: fieldpath.Path{}, Value: values})
}

// SetFieldErrors replaces the messages of each listed path. An entry with
// no messages clears the path.
func (s *Store) SetFieldErrors(errs []FieldError) {
	s.mu.Lock()
	for _, fe := range errs {
		key := pathKey(fe.Path)
		if len(fe.Messages) == 0 {
			delete(s.errors, key)
			continue
		}
		s.errors[key] = FieldError{Path: fe.Path.Clone(), Messages: append([]string(nil), fe.Messages...)}
	}
	s.mu.Unlock()
	s.publish(Change{})
}

// ClearErrors removes the errors at and below prefix.
func (s *Store) ClearErrors(prefix fieldpath.Path) {
	s.mu.Lock()
	s.clearErrorsLocked(prefix)
	s.mu.Unlock()
}

func (s *Store) clearErrorsLocked(prefix fieldpath.Path) {
	for key, fe := range s.errors {
		if fieldpath.HasPrefix(fe.Path, prefix) {
			delete(s.errors, key)
		}
	}
}

// Errors returns the messages attached to path.
func (s *Store) Errors(path fieldpath.Path) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	fe, ok := s.errors[pathKey(path)]
	if !ok {
		return nil
	}
	return append([]string(nil), fe.Messages...)
}

// AllErrors returns every error entry ordered by dotted path.
func (s *Store) AllErrors() []FieldError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FieldError, 0, len(s.errors))
	for _, fe := range s.errors {
		out = append(out, FieldError{Path: fe.Path.Clone(), Messages: append([]string(nil), fe.Messages...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.String() < out[j].Path.String() })
	return out
}

// Subscribe registers fn for value changes and returns the unsubscribe
// function.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish(change Change) {
	s.mu.Lock()
	listeners := make([]func(Change), 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}
