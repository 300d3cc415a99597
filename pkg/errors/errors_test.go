package errors

import (
	stdErrors "errors"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := NewNotFound("lead", "abc")
	if !stdErrors.Is(err, ErrNotFound) {
		t.Fatal("expected NewNotFound to match ErrNotFound")
	}
	if stdErrors.Is(err, ErrConflict) {
		t.Fatal("did not expect NOT_FOUND to match CONFLICT")
	}

	wrapped := ErrDuplicateRequest.WithInternal(stdErrors.New("unique constraint"))
	if !stdErrors.Is(wrapped, ErrDuplicateRequest) {
		t.Fatal("expected wrapped duplicate error to match sentinel")
	}
}

func TestNewValidation(t *testing.T) {
	err := NewValidation("invalid payload")
	if err.Code != ErrValidation.Code {
		t.Fatalf("expected %s, got %s", ErrValidation.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrValidation.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestNewConflictCarriesDetail(t *testing.T) {
	err := NewConflict("lead converted while assigning")
	if err.Message != "lead converted while assigning" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrConflict.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
