// Package core provides amount parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings.
// Amounts are currency-minor-unit-agnostic decimals; the currency is implied
// by the owning account, never by the transaction record itself.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a signed decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Zero amounts are rejected: a transaction's amount is never zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,34") -> -12.34, nil
//	ParseAmount("0")      -> 0, ErrZeroAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsZero() {
		return decimal.Zero, ErrZeroAmount
	}
	return d, nil
}
