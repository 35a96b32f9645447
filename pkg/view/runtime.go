package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnsettled is returned by Settle when state keeps changing after the
// maximum number of passes.
var ErrUnsettled = errors.New("view: tree did not settle")

const defaultMaxPasses = 16

// Runtime owns component-local state and effects across render passes.
type Runtime struct {
	mu        sync.Mutex
	pass      int
	dirty     bool
	cells     map[string]any
	seen      map[string]struct{}
	effects   []func()
	maxPasses int
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithMaxPasses bounds the passes Settle performs.
func WithMaxPasses(n int) RuntimeOption {
	return func(r *Runtime) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		cells:     make(map[string]any),
		maxPasses: defaultMaxPasses,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type runtimeKey struct{}

// FromContext returns the runtime driving the current pass.
func FromContext(ctx context.Context) *Runtime {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(runtimeKey{}).(*Runtime)
	return r
}

// Pass renders root once, then runs the effects queued during the pass.
// State cells not read during the pass are discarded (unmounted).
func (r *Runtime) Pass(ctx context.Context, root Render) []*Node {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	r.pass++
	r.dirty = false
	r.seen = make(map[string]struct{}, len(r.cells))
	r.effects = nil
	r.mu.Unlock()

	var nodes []*Node
	if root != nil {
		nodes = root(context.WithValue(ctx, runtimeKey{}, r))
	}

	r.mu.Lock()
	effects := r.effects
	r.effects = nil
	for key := range r.cells {
		if _, ok := r.seen[key]; !ok {
			delete(r.cells, key)
		}
	}
	r.mu.Unlock()

	for _, effect := range effects {
		effect()
	}
	return nodes
}

// Settle renders passes until no state change is pending.
func (r *Runtime) Settle(ctx context.Context, root Render) ([]*Node, error) {
	var nodes []*Node
	for i := 0; i < r.maxPasses; i++ {
		nodes = r.Pass(ctx, root)
		if !r.Dirty() {
			return nodes, nil
		}
	}
	return nodes, fmt.Errorf("%w after %d passes", ErrUnsettled, r.maxPasses)
}

// Invalidate marks the tree as needing another pass.
func (r *Runtime) Invalidate() {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

// Dirty reports whether state changed since the current pass started.
func (r *Runtime) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// Passes returns the number of passes rendered so far.
func (r *Runtime) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pass
}

// Effect queues fn to run after the current pass has rendered. Outside a
// pass the effect is dropped.
func Effect(ctx context.Context, fn func()) {
	r := FromContext(ctx)
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	r.effects = append(r.effects, fn)
	r.mu.Unlock()
}

// Cell is a piece of component-local state.
type Cell[T any] struct {
	mu    sync.Mutex
	owner *Runtime
	value T
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores value and schedules another pass.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
	if c.owner != nil {
		c.owner.Invalidate()
	}
}

// State returns the cell stored under key, creating it with initial on
// first use. Keys must be stable across passes. Outside a pass a detached
// cell is returned.
func State[T any](ctx context.Context, key string, initial T) *Cell[T] {
	r := FromContext(ctx)
	if r == nil {
		return &Cell[T]{value: initial}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen != nil {
		r.seen[key] = struct{}{}
	}
	if existing, ok := r.cells[key]; ok {
		cell, ok := existing.(*Cell[T])
		if !ok {
			panic(fmt.Sprintf("view: state %q reused with a different type", key))
		}
		return cell
	}
	cell := &Cell[T]{owner: r, value: initial}
	r.cells[key] = cell
	return cell
}
