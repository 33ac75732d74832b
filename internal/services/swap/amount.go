// Package swap holds the swap engine: amount parsing, validation, quoting
// and settlement of swaps against the wallet ledger.
package swap

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// unsignedDecimal is digits, an optional single decimal point, digits.
var unsignedDecimal = regexp.MustCompile(`^\d*\.?\d*$`)

// inputChars is what the amount field accepts while typing.
var inputChars = regexp.MustCompile(`^[\d.,]*$`)

// IsUnsignedDecimal reports whether text has the shape of an unsigned decimal.
// The empty string matches.
func IsUnsignedDecimal(text string) bool {
	return unsignedDecimal.MatchString(text)
}

// ParseAmount parses an unsigned decimal typed by the user.
// It returns false for text that does not match the pattern or has no digits ("", ".").
// Leading and trailing points are accepted: ".5" is 0.5 and "5." is 5.
func ParseAmount(text string) (decimal.Decimal, bool) {
	if !unsignedDecimal.MatchString(text) || strings.Trim(text, ".") == "" {
		return decimal.Zero, false
	}

	normalized := text
	if strings.HasPrefix(normalized, ".") {
		normalized = "0" + normalized
	}
	normalized = strings.TrimSuffix(normalized, ".")

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FilterInput is the keystroke boundary of the amount field. It accepts digits
// and a single decimal separator, "," being read as ".", and refuses anything
// else so the form state never holds malformed text from typing.
func FilterInput(raw string) (string, bool) {
	if !inputChars.MatchString(raw) {
		return "", false
	}
	normalized := strings.ReplaceAll(raw, ",", ".")
	if !unsignedDecimal.MatchString(normalized) {
		return "", false
	}
	return normalized, true
}
