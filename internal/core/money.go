// Package core holds the coin domain model and the derived-view engine.
//
// This file contains price parsing helpers. Prices are kept in cents to
// avoid floating-point drift in aggregates.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice converts a decimal string to an optional Money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. An empty string
// means the price is absent and yields (nil, nil). Zero is a valid price;
// negative values and malformed input are rejected.
//
// Examples:
//
//	ParsePrice("12.34") -> 1234 cents
//	ParsePrice("12,34") -> 1234 cents
//	ParsePrice("0")     -> 0 cents
//	ParsePrice("")      -> nil (absent)
func ParsePrice(s string) (*Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	cents, err := parseDecimalToCents(s)
	if err != nil {
		return nil, err
	}
	return &Money{Cents: cents}, nil
}

func parseDecimalToCents(s string) (int64, error) {
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only non-negative values allowed
		return 0, ErrNegativePrice
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidNumber
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidNumber
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidNumber
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidNumber
	}
	// Take first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// CoercePrice parses like ParsePrice but treats any value that fails to
// parse as absent rather than surfacing an error. Used when reading
// records back from a store.
func CoercePrice(s string) *Money {
	m, err := ParsePrice(s)
	if err != nil {
		return nil
	}
	return m
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}
