package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	ManagerID string `json:"manager_id" validate:"required,uuid4"`
	Priority  string `json:"priority" validate:"required,priority"`
	Capacity  int    `json:"capacity" validate:"gte=1"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		ManagerID: "b9f0f6f0-16b7-4f14-9a0c-0f0d6d98a111",
		Priority:  "high",
		Capacity:  20,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		ManagerID: "",
		Priority:  "urgent",
		Capacity:  0,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundPriority := false
	for _, v := range vErrs {
		if v.Field == "priority" {
			foundPriority = true
		}
	}

	if !foundPriority {
		t.Fatal("expected priority field to be present in validation errors")
	}
}

func TestPriorityRule(t *testing.T) {
	type payload struct {
		Priority string `json:"priority" validate:"omitempty,priority"`
	}

	for _, tier := range []string{"low", "medium", "high"} {
		if err := ValidateStruct(payload{Priority: tier}); err != nil {
			t.Fatalf("expected %q to validate, got %v", tier, err)
		}
	}
	if err := ValidateStruct(payload{}); err != nil {
		t.Fatalf("expected empty priority to pass omitempty, got %v", err)
	}
	if err := ValidateStruct(payload{Priority: "urgent"}); err == nil {
		t.Fatal("expected unknown priority tier to fail")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("pipeline", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "new"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"pipeline"`
	}

	if err := ValidateStruct(custom{Value: "new"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
