package charge

import (
	"context"
	"errors"
	"testing"
)

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.CreateIntent(context.Background(), Request{AmountMinor: 100, Currency: "inr"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
