package services

import (
	"fmt"
	"testing"
)

func TestErrorClassificationSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("approving payout: %w",
		fmt.Errorf("company balance 10.00 below payout 50.00: %w", ErrInsufficientBalance))

	if !IsInsufficientBalance(wrapped) {
		t.Error("wrapped ErrInsufficientBalance not recognized")
	}
	if IsNotFound(wrapped) || IsValidation(wrapped) || IsAlreadyProcessed(wrapped) {
		t.Error("wrapped error matched the wrong class")
	}

	if !IsAuthenticity(fmt.Errorf("callback: %w", ErrAuthenticity)) {
		t.Error("wrapped ErrAuthenticity not recognized")
	}
	if IsNotFound(nil) {
		t.Error("nil error classified as not-found")
	}
}
