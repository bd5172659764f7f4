// Package core provides amount parsing and handling utilities.
//
// Stored amounts are free text. Read paths coerce them leniently and never
// fail; the write boundary parses them strictly and stores a canonical form.
package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")

	leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	wholeNumber   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// normalizeAmountText drops digit-grouping spaces and turns a decimal comma
// into a dot.
func normalizeAmountText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)
	return s
}

func cleanNumber(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "+"), ".")
}

// ParseAmount coerces stored text into a decimal. It reads the longest
// numeric prefix, so "500 MRU" is 500, and returns zero when there is none.
//
// Examples:
//
//	ParseAmount("500")     -> 500
//	ParseAmount("1 250,5") -> 1250.5
//	ParseAmount("abc")     -> 0
func ParseAmount(s string) decimal.Decimal {
	m := leadingNumber.FindString(normalizeAmountText(s))
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleanNumber(m))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict parses a user-entered amount. The whole input must be a
// number and the result must not be negative.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	n := normalizeAmountText(s)
	if n == "" || !wholeNumber.MatchString(n) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleanNumber(n))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// NormalizeAmount returns the canonical stored form of a valid amount.
func NormalizeAmount(s string) (string, error) {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
