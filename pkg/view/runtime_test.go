package view

import (
	"context"
	"errors"
	"testing"
)

func TestState_PersistsAcrossPasses(t *testing.T) {
	rt := NewRuntime()
	var seen []int
	root := func(ctx context.Context) []*Node {
		cell := State(ctx, "counter", 0)
		seen = append(seen, cell.Get())
		Effect(ctx, func() {
			if cell.Get() < 2 {
				cell.Set(cell.Get() + 1)
			}
		})
		return nil
	}
	if _, err := rt.Settle(context.Background(), root); err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("renders = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("renders = %v, want %v", seen, want)
		}
	}
}

func TestEffect_RunsAfterRender(t *testing.T) {
	rt := NewRuntime()
	var order []string
	rt.Pass(context.Background(), func(ctx context.Context) []*Node {
		Effect(ctx, func() { order = append(order, "effect") })
		order = append(order, "render")
		return nil
	})
	if len(order) != 2 || order[0] != "render" || order[1] != "effect" {
		t.Fatalf("order = %v", order)
	}
}

func TestSettle_Bounded(t *testing.T) {
	rt := NewRuntime(WithMaxPasses(3))
	_, err := rt.Settle(context.Background(), func(ctx context.Context) []*Node {
		cell := State(ctx, "loop", 0)
		Effect(ctx, func() { cell.Set(cell.Get() + 1) })
		return nil
	})
	if !errors.Is(err, ErrUnsettled) {
		t.Fatalf("expected ErrUnsettled, got %v", err)
	}
	if rt.Passes() != 3 {
		t.Fatalf("passes = %d, want 3", rt.Passes())
	}
}

func TestState_UnmountedCellsAreDropped(t *testing.T) {
	rt := NewRuntime()
	mounted := true
	root := func(ctx context.Context) []*Node {
		if mounted {
			State(ctx, "child", 5).Set(7)
		}
		return nil
	}
	rt.Pass(context.Background(), root)
	mounted = false
	rt.Pass(context.Background(), root)
	mounted = true
	var got int
	rt.Pass(context.Background(), func(ctx context.Context) []*Node {
		got = State(ctx, "child", 5).Get()
		return nil
	})
	if got != 5 {
		t.Fatalf("expected remounted state to start from its initial value, got %d", got)
	}
}

func TestFind(t *testing.T) {
	tree := []*Node{
		Element("section", nil, &Node{Kind: KindField, Key: "a"}),
	}
	if Find(tree, nil) != nil {
		t.Fatalf("nil path must not match")
	}
	if got := len(Fields(tree)); got != 1 {
		t.Fatalf("fields = %d", got)
	}
}
