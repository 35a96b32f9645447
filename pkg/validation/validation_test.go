package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

func requireNameAndAge() Validator {
	return Func(func(_ context.Context, input any) (Result, error) {
		values, _ := input.(map[string]any)
		var issues Issues
		for _, key := range []string{"name", "age"} {
			if _, ok := values[key]; !ok {
				issues = append(issues, Issue{Path: fieldpath.Of(key), Code: CodeRequired, Message: key + " is required"})
			}
		}
		if len(issues) > 0 {
			return Result{Issues: issues}, nil
		}
		return Result{Value: values}, nil
	})
}

func TestRequiredPaths(t *testing.T) {
	paths, err := RequiredPaths(context.Background(), requireNameAndAge())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([][]any, len(paths))
	for i, p := range paths {
		got[i] = p.Values()
	}
	if diff := cmp.Diff([][]any{{"name"}, {"age"}}, got); diff != "" {
		t.Fatalf("required paths mismatch (-want +got):\n%s", diff)
	}

	none := Func(func(_ context.Context, input any) (Result, error) {
		return Result{Value: input}, nil
	})
	paths, err = RequiredPaths(context.Background(), none)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no required paths, got %v", paths)
	}
}

func TestRequiredPaths_PendingIsNotAwaited(t *testing.T) {
	_, err := RequiredPaths(context.Background(), Async(requireNameAndAge()))
	if !errors.Is(err, ErrPending) {
		t.Fatalf("expected ErrPending, got %v", err)
	}
}

func TestAsyncAwait(t *testing.T) {
	outcome := Async(requireNameAndAge()).Validate(context.Background(), map[string]any{"name": "a", "age": 3})
	if _, ok, _ := outcome.Settled(); ok {
		t.Fatalf("async outcome must not report as settled")
	}
	result, err := outcome.Await(context.Background())
	if err != nil || !result.OK() {
		t.Fatalf("unexpected result %+v, %v", result, err)
	}
}

func TestAwait_Cancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	outcome := Go(func() (Result, error) {
		<-block
		return Result{}, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := outcome.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestAwait_RepanicsValidatorPanic(t *testing.T) {
	outcome := Go(func() (Result, error) { panic("boom") })
	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected re-panic with boom, got %v", r)
		}
	}()
	_, _ = outcome.Await(context.Background())
}

func TestRefine(t *testing.T) {
	v := Refine(requireNameAndAge(), func(_ context.Context, value any) Issues {
		values := value.(map[string]any)
		if values["name"] == "root" {
			return Issues{{Path: fieldpath.Of("name"), Code: CodeCustom, Message: "reserved"}}
		}
		return nil
	})

	result, _ := v.Validate(context.Background(), map[string]any{"name": "root", "age": 1}).Await(context.Background())
	issue, ok := result.Issues.First(fieldpath.Of("name"))
	if !ok || issue.Message != "reserved" {
		t.Fatalf("expected refinement issue, got %+v", result.Issues)
	}

	result, _ = v.Validate(context.Background(), map[string]any{}).Await(context.Background())
	if len(result.Issues.At(fieldpath.Of("name"))) != 1 || result.Issues[0].Code != CodeRequired {
		t.Fatalf("refinement must not run when the base fails: %+v", result.Issues)
	}
}

func TestJSONValue(t *testing.T) {
	type item struct {
		Email string  `json:"email"`
		Note  *string `json:"note"`
	}
	got, err := JSONValue(map[string]any{"items": []item{{Email: "a@b.c"}}, "cleared": nil, "n": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"items": []any{map[string]any{"email": "a@b.c"}},
		"n":     float64(2),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("json value mismatch (-want +got):\n%s", diff)
	}
}
