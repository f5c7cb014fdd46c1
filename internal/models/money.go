package models

import (
	"fmt"
	"math"
)

// DollarsToCents converts a decimal dollar amount to cents, rounding to the
// nearest cent.
func DollarsToCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

// FormatCents renders cents as "$12.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// AbbreviateCents renders large amounts compactly: "$950", "$1.2k", "$3.4M".
func AbbreviateCents(cents int64) string {
	dollars := float64(cents) / 100
	abs := math.Abs(dollars)
	switch {
	case abs >= 1e9:
		return trimAbbrev(dollars/1e9) + "B"
	case abs >= 1e6:
		return trimAbbrev(dollars/1e6) + "M"
	case abs >= 1e3:
		return trimAbbrev(dollars/1e3) + "k"
	default:
		return fmt.Sprintf("$%.0f", dollars)
	}
}

func trimAbbrev(v float64) string {
	s := fmt.Sprintf("$%.1f", v)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
