// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal with two fractional digits. Sums are
// always computed in decimal and only converted to float64 when a value leaves
// the system as chart or JSON data.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string into an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Negative and zero values are
// rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	cents, err := parseCents(s)
	if err != nil {
		return decimal.Zero, err
	}
	if cents <= 0 {
		return decimal.Zero, ErrNonPositiveAmount
	}
	return FromCents(cents), nil
}

// ParseNonNegativeAmount behaves like ParseAmount but accepts zero.
// An empty input yields zero.
func ParseNonNegativeAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	cents, err := parseCents(s)
	if err != nil {
		return decimal.Zero, err
	}
	return FromCents(cents), nil
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return 0, ErrNonPositiveAmount
	}
	s = strings.TrimPrefix(s, "+")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents returns the amount in cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// Float converts an amount for chart and JSON payloads.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// Ratio returns num/den*100 rounded to one decimal, or 0 when den is zero.
func Ratio(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	f, _ := num.Div(den).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return f
}

// ClampedRatio is Ratio limited to the [0, 100] range.
func ClampedRatio(num, den decimal.Decimal) float64 {
	r := Ratio(num, den)
	if r > 100 {
		return 100
	}
	if r < 0 {
		return 0
	}
	return r
}
