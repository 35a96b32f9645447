package scope

import (
	"context"
	"testing"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

func TestRead_DefaultsToEmpty(t *testing.T) {
	if got := Read(context.Background()); len(got) != 0 || got == nil {
		t.Fatalf("expected empty, non-nil prefix, got %#v", got)
	}
}

func TestProvide_InnermostWins(t *testing.T) {
	outer := Provide(context.Background(), fieldpath.Of("address"))
	inner := Provide(outer, fieldpath.Of("emails", 2))

	if got := Read(outer).String(); got != "address" {
		t.Fatalf("outer prefix = %q", got)
	}
	if got := Read(inner).String(); got != "emails.2" {
		t.Fatalf("inner prefix = %q", got)
	}
	if got := Resolve(inner, fieldpath.Of("email")).String(); got != "emails.2.email" {
		t.Fatalf("resolved = %q", got)
	}
}
