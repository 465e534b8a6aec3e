package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfTraversesWrappedChains(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("User not found"))
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected KindNotFound through the chain")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected KindUnknown for plain errors")
	}
	if KindOf(nil) != KindUnknown {
		t.Fatalf("expected KindUnknown for nil")
	}
}

func TestMessageOfHidesNonTaxonomyErrors(t *testing.T) {
	if got := MessageOf(Validation("title and content required")); got != "title and content required" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(errors.New("sql: connection refused")); got != "Server error" {
		t.Fatalf("raw errors must collapse to the generic message, got %q", got)
	}
}

func TestServerKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := Server(cause)
	if MessageOf(err) != "Server error" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected the cause to stay reachable for logs")
	}
}
