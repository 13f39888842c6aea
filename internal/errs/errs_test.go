package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestTaxonomyClassification(t *testing.T) {
	v := Validation("quantity", "must be positive")
	b := Business("stake %d too large", 9)
	r := Resolution("account lookup", errors.New("connection refused"))

	if !IsValidation(v) || IsBusiness(v) || IsResolution(v) {
		t.Errorf("validation error misclassified: %v", v)
	}
	if !IsBusiness(b) || IsValidation(b) || IsResolution(b) {
		t.Errorf("business error misclassified: %v", b)
	}
	if !IsResolution(r) || IsValidation(r) || IsBusiness(r) {
		t.Errorf("resolution error misclassified: %v", r)
	}
	if IsValidation(nil) || IsBusiness(nil) || IsResolution(nil) {
		t.Error("nil must not classify as any taxonomy error")
	}
}

func TestBusinessFromPreservesSentinel(t *testing.T) {
	sentinel := errors.New("risk: limit exceeded")
	err := BusinessFrom(sentinel)

	if !IsBusiness(err) {
		t.Errorf("expected business error, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("wrapped sentinel lost: %v", err)
	}
}

func TestClassificationThroughWrapping(t *testing.T) {
	inner := Validation("symbol", "unknown")
	wrapped := fmt.Errorf("placing order: %w", inner)

	if !IsValidation(wrapped) {
		t.Errorf("validation error should survive fmt wrapping: %v", wrapped)
	}
}

func TestResolutionUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Resolution("nav lookup", cause)

	if !errors.Is(err, cause) {
		t.Errorf("resolution error should unwrap to its cause: %v", err)
	}
}
