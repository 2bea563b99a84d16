package workflow

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAdjustmentGates(t *testing.T) {
	remaining := decimal.NewFromInt(3)
	original := decimal.NewFromInt(10)

	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(-2), false); err != nil {
		t.Errorf("shrink within bounds should pass: %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(-3), false); err != nil {
		t.Errorf("shrink to exactly zero should pass: %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(-4), false); !errors.Is(err, ErrNegativeAdjustment) {
		t.Errorf("expected ErrNegativeAdjustment, got %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(8), false); !errors.Is(err, ErrAdjustmentNeedsConfirm) {
		t.Errorf("growth past original qty without confirm must be gated, got %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(8), true); err != nil {
		t.Errorf("confirmed growth past original qty should pass: %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.NewFromInt(7), false); err != nil {
		t.Errorf("growth up to original qty needs no confirm: %v", err)
	}
	if err := ValidateAdjustment(remaining, original, decimal.Zero, false); err == nil {
		t.Error("zero delta must be rejected")
	}
}
