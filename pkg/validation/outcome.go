package validation

import (
	"context"
	"fmt"
)

// Outcome is either a settled result or a pending one produced on another
// goroutine.
type Outcome struct {
	result  Result
	err     error
	pending *promise
}

type promise struct {
	done   chan struct{}
	result Result
	err    error
	panic  any
}

// Ready wraps a settled result.
func Ready(result Result) Outcome { return Outcome{result: result} }

// Failed wraps a validator error (not a validation issue).
func Failed(err error) Outcome { return Outcome{err: err} }

// Go runs fn on a new goroutine and returns its pending outcome. A panic in
// fn is re-raised by Await.
func Go(fn func() (Result, error)) Outcome {
	p := &promise{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				p.panic = r
			}
		}()
		p.result, p.err = fn()
	}()
	return Outcome{pending: p}
}

// Pending reports whether the outcome has not settled yet at creation time.
func (o Outcome) Pending() bool {
	if o.pending == nil {
		return false
	}
	select {
	case <-o.pending.done:
		return false
	default:
		return true
	}
}

// Settled returns the result without blocking. ok is false when the outcome
// came from Go, even if the goroutine already finished: asynchronous
// outcomes are never treated as synchronous.
func (o Outcome) Settled() (Result, bool, error) {
	if o.pending != nil {
		return Result{}, false, nil
	}
	return o.result, true, o.err
}

// Await blocks until the outcome settles or ctx is done.
func (o Outcome) Await(ctx context.Context) (Result, error) {
	if o.pending == nil {
		return o.result, o.err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-o.pending.done:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("validation: await: %w", ctx.Err())
	}
	if o.pending.panic != nil {
		panic(o.pending.panic)
	}
	return o.pending.result, o.pending.err
}
