// Package core holds the ledger domain model: records, closed enums,
// the dues lifecycle and the error taxonomy shared by every layer.
//
// This file contains amount parsing and the tolerance used for every
// amount comparison.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is the maximum difference at which two amounts are considered equal.
// Percentage discounts on invoice lines produce values that do not add up exactly,
// so exact equality must never be used on amounts.
const Tolerance = 0.01

// AmountsEqual reports whether a and b are equal within Tolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance+1e-9
}

// ParseAmount converts a decimal string to a non-negative amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. Negative values, thousands
// separators and non-numeric input are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).InexactFloat64(), nil
}

// RoundCents rounds an amount to two decimals using decimal arithmetic.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SumAmounts adds amounts without accumulating binary rounding drift.
func SumAmounts(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// ValidateAmount rejects negative and non-finite amounts.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}
