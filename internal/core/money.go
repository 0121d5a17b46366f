// Package core provides money parsing and formatting utilities.
//
// Amounts travel through the application as float64 dollars; parsing goes
// through shopspring/decimal so that user input is rounded exactly to cents.
package core

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string into dollars.
//
// An empty string means nothing was spent and yields 0. Both dot (12.34) and
// comma (12,34) decimal separators are accepted, as is a leading "$".
// Values are rounded half-up to two decimals. Negative, non-numeric and
// non-finite values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("$12,34") -> 12.34, nil
//	ParseAmount("")       -> 0, nil
//	ParseAmount("-1")     -> 0, ErrNegativeAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	v := d.Round(2).InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseAmounts parses one raw value per category. Missing keys count as 0.
func ParseAmounts(raw map[Category]string) (Amounts, error) {
	var a Amounts
	for _, c := range Categories() {
		v, err := ParseAmount(raw[c])
		if err != nil {
			return Amounts{}, categoryError(c, err)
		}
		a.Set(c, v)
	}
	if err := a.Validate(); err != nil {
		return Amounts{}, err
	}
	return a, nil
}

// FormatUSD renders dollars as "$1,234.56".
func FormatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatWhole renders dollars without cents, e.g. "$24,000".
func FormatWhole(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return "$" + humanize.Comma(int64(math.Round(v)))
}
