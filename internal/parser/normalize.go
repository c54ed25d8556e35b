package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateTokens = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
)

// GoDateLayout converts a DD/MM/YYYY style pattern into a Go time layout.
// Patterns that already are Go layouts are returned unchanged.
func GoDateLayout(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", fmt.Errorf("date format is required")
	}
	if strings.Contains(pattern, "2006") || strings.Contains(pattern, "06") && strings.Contains(pattern, "01") {
		return pattern, nil
	}

	layout := dateTokens.Replace(strings.ToUpper(pattern))
	if strings.ContainsAny(layout, "DMY") {
		return "", fmt.Errorf("unsupported date format %q", pattern)
	}
	return layout, nil
}

// ParseDate parses value with a DD/MM/YYYY style pattern and truncates to the day
func ParseDate(value, pattern string) (time.Time, error) {
	layout, err := GoDateLayout(pattern)
	if err != nil {
		return time.Time{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match %s", value, pattern)
	}
	return toDay(t), nil
}

func toDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var currencyNoise = strings.NewReplacer(
	"€", "",
	"EUR", "",
	"eur", "",
	"$", "",
	" ", "",
	" ", "",
	"'", "",
)

// ParseAmount normalizes a locale formatted amount string and parses it.
// Accepts leading or trailing minus signs and accounting parentheses.
func ParseAmount(raw, decimalSep, thousandsSep string) (decimal.Decimal, error) {
	s := currencyNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = s[1 : len(s)-1]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSuffix(s, "-")
	case strings.HasPrefix(s, "-"):
		negative = true
		s = strings.TrimPrefix(s, "-")
	case strings.HasPrefix(s, "+"):
		s = strings.TrimPrefix(s, "+")
	}

	if decimalSep == "" {
		decimalSep = "."
	}
	if decimalSep != "." && thousandsSep != "." && strings.Contains(s, ".") {
		return decimal.Zero, fmt.Errorf("amount %q uses '.' but the decimal separator is %q", raw, decimalSep)
	}

	intPart, fracPart, hasFrac := strings.Cut(s, decimalSep)
	if hasFrac && (fracPart == "" || !allDigits(fracPart)) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if thousandsSep != "" && strings.Contains(intPart, thousandsSep) {
		if !grouped(intPart, thousandsSep) {
			return decimal.Zero, fmt.Errorf("amount %q has misplaced %q separators", raw, thousandsSep)
		}
		intPart = strings.ReplaceAll(intPart, thousandsSep, "")
	}
	if !allDigits(intPart) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}

	s = intPart
	if hasFrac {
		s += "." + fracPart
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// grouped reports whether s is 1-3 digits followed by groups of exactly 3 digits
func grouped(s, sep string) bool {
	groups := strings.Split(s, sep)
	if len(groups[0]) < 1 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cleanText collapses runs of whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
