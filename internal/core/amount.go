// Package core holds the domain types and the canonical parsing of
// monetary input.
//
// Every amount is a whole number of Ariary; there are no fractional
// subunits. Form input arrives as strings, so all arithmetic goes through
// ParseAmount or ParseCommission before a single addition happens.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a user-entered amount to integer Ariary.
//
// Digits only, optional surrounding whitespace, thin thousands separators
// (space or dot) tolerated. Zero and negative values are rejected.
//
// Examples:
//
//	ParseAmount("500")    -> 500, nil
//	ParseAmount("10 000") -> 10000, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
//	ParseAmount("-5")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	v, err := parseAriary(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseCommission is ParseAmount with zero allowed: a transaction may
// carry no commission.
func ParseCommission(s string) (int64, error) {
	return parseAriary(s)
}

func parseAriary(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '\u00a0':
			// separator, skip
		default:
			return 0, ErrInvalidAmount
		}
	}
	if b.Len() == 0 {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
