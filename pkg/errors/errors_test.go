package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(CodeDependency, cause, "gateway unreachable")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestAsFindsNestedTypedError(t *testing.T) {
	inner := New(CodeAuthenticity, "signature mismatch")
	outer := Wrap(CodeInternal, inner, "notification handling")
	// As walks the chain; the outermost typed error wins.
	if As(outer).Code() != CodeInternal {
		t.Fatalf("expected outermost code, got %s", As(outer).Code())
	}
	if As(errors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestAuthenticityMapsToBadRequest(t *testing.T) {
	meta := MetadataFor(CodeAuthenticity)
	if meta.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400 for authenticity failures, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("authenticity failures must not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeDependency, "store down")) {
		t.Fatal("dependency errors are retryable")
	}
	if IsRetryable(New(CodeValidation, "bad amount")) {
		t.Fatal("validation errors are not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatal("untyped errors are not retryable")
	}
}
