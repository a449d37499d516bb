package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsWrappedError(t *testing.T) {
	t.Parallel()

	typed := New(CodeStateConflict, "order not cancellable")
	wrapped := fmt.Errorf("outer: %w", typed)

	found := As(wrapped)
	if found == nil {
		t.Fatal("expected typed error")
	}
	if found.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %q", found.Code())
	}
}

func TestAsReturnsNilForPlainError(t *testing.T) {
	t.Parallel()

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("row missing")
	err := Wrap(CodeDependency, cause, "load sale")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "DEPENDENCY_ERROR: load sale" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("MYSTERY"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := New(CodeValidation, "bad amount").WithDetails(map[string]string{"amount": "must be positive"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatal("expected map details")
	}
	if details["amount"] != "must be positive" {
		t.Fatalf("unexpected details %v", details)
	}
}
