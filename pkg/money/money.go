// Package money centralizes the rounding and comparison rules for monetary
// amounts and produce weights. Amounts are stored as decimals, money rounded
// to 2 places, weights to 3, and reconciliation treats differences under one
// cent as settled.
package money

import "github.com/shopspring/decimal"

// Tolerance is the reconciliation threshold. Absolute differences strictly
// below it are treated as zero.
var Tolerance = decimal.RequireFromString("0.01")

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// RoundMoney rounds an amount to 2 decimal places (cents).
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// RoundWeight rounds a weight to 3 decimal places (grams).
func RoundWeight(weight decimal.Decimal) decimal.Decimal {
	return weight.Round(3)
}

// WithinTolerance reports whether two amounts differ by less than Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// IsSettled reports whether a residual amount is close enough to zero to be
// ignored by reconciliation.
func IsSettled(residual decimal.Decimal) bool {
	return residual.Abs().LessThan(Tolerance)
}

// FromString parses a decimal amount, returning an error for malformed input.
func FromString(value string) (decimal.Decimal, error) {
	return decimal.NewFromString(value)
}
