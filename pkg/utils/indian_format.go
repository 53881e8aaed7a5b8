// Package utils provides common utility functions for investorfolio.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseIndianNumber parses a share count or amount as scraped from Indian
// filings, e.g. "12,34,567" or " 1,000.50 ". Grouping commas are ignored.
func ParseIndianNumber(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("parse %q: empty number", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", s, err)
	}
	return d, nil
}

// FormatIndianDecimal formats d with Indian digit grouping (12,34,567.5).
// The fractional part is kept as the decimal renders it.
func FormatIndianDecimal(d decimal.Decimal) string {
	negative := d.IsNegative()
	s := d.Abs().String()

	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := groupIndian(intPart)
	if hasFrac {
		out += "." + frac
	}
	if negative {
		return "-" + out
	}
	return out
}

// groupIndian groups a string of digits Indian-style (last 3, then 2s).
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	length := len(digits)

	// Take the last 3 digits
	result := digits[length-3:]
	remaining := digits[:length-3]

	// Group remaining digits in pairs from right
	for len(remaining) > 0 {
		if len(remaining) > 2 {
			result = remaining[len(remaining)-2:] + "," + result
			remaining = remaining[:len(remaining)-2]
		} else {
			result = remaining + "," + result
			remaining = ""
		}
	}

	return result
}
