package application

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_RequireAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("date", "bad format")
	if base.MissingRequired {
		t.Fatalf("expected add not to flag missing fields")
	}

	other := &ValidationError{}
	other.require("title", "required")
	base.merge(other)
	if !base.MissingRequired || base.FieldErrors["title"] != "required" {
		t.Fatalf("expected merge to carry required flag and fields, got %#v", base)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := storeError("CreateEvent", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected store error to unwrap to its cause")
	}
	if again := storeError("Outer", err); again != err {
		t.Fatalf("expected existing store error to be reused")
	}
	if ErrorKind(err) != "store" {
		t.Fatalf("expected store error kind, got %q", ErrorKind(err))
	}
}
