package token

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveAmount is returned for zero or negative amounts.
var ErrNonPositiveAmount = errors.New("amount must be positive")

// ValidateAmount checks that s is a positive decimal string.
func ValidateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse decimal: %w", err)
	}
	if !d.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}

// SumAmounts adds decimal strings exactly.
func SumAmounts(amounts ...string) (string, error) {
	total := decimal.Zero
	for _, a := range amounts {
		d, err := decimal.NewFromString(a)
		if err != nil {
			return "", fmt.Errorf("parse decimal: %w", err)
		}
		total = total.Add(d)
	}
	return total.String(), nil
}
