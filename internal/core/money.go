// Package core implements the bill-splitting engine: tax application,
// per-item split allocation, participant totals and bill status, all as
// pure functions over immutable Bill snapshots.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice converts a price string to a float64 amount. It accepts an
// optional leading currency sign and both dot (12.34) and comma (12,34)
// decimal separators. Negative values and malformed input are rejected
// here at the write boundary; the engine itself never validates prices.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// RoundToCents performs half-up rounding to two decimal places. Totals are
// computed at full float64 precision; rounding happens only when an amount
// is displayed or exported.
func RoundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders an amount as a dollar string, e.g. "$12.34".
func FormatAmount(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	s := "$" + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
