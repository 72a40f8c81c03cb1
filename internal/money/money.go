// Package money holds the integer-cent and integer-minute arithmetic shared by
// billing, rendering and reporting. Every rounding step goes through here, once
// per computed value, half away from zero.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// Breakdown is the billed value of a quantity of minutes at a rate and discount.
type Breakdown struct {
	PreDiscountCents int64
	DiscountCents    int64
	AmountCents      int64
}

// AmountForMinutes returns round(minutes / 60 * hourlyRateCents).
func AmountForMinutes(minutes, hourlyRateCents int64) int64 {
	return decimal.NewFromInt(minutes).
		Mul(decimal.NewFromInt(hourlyRateCents)).
		DivRound(sixty, 0).
		IntPart()
}

// DiscountCents returns round(preDiscountCents * percent / 100).
func DiscountCents(preDiscountCents int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(preDiscountCents).
		Mul(percent).
		DivRound(hundred, 0).
		IntPart()
}

func ApplyDiscount(preDiscountCents int64, percent decimal.Decimal) (discount, amount int64) {
	discount = DiscountCents(preDiscountCents, percent)
	return discount, preDiscountCents - discount
}

func Bill(minutes, hourlyRateCents int64, percent decimal.Decimal) Breakdown {
	pre := AmountForMinutes(minutes, hourlyRateCents)
	discount, amount := ApplyDiscount(pre, percent)
	return Breakdown{PreDiscountCents: pre, DiscountCents: discount, AmountCents: amount}
}

// Format renders cents as "$X.XX". Display only.
func Format(cents int64) string {
	if cents < 0 {
		return "-$" + decimal.New(-cents, -2).StringFixed(2)
	}
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// Hours renders minutes as decimal hours with two places, e.g. 90 -> "1.50".
func Hours(minutes int64) string {
	return decimal.NewFromInt(minutes).DivRound(sixty, 2).StringFixed(2)
}

func FormatPercent(percent decimal.Decimal) string {
	if percent.IsZero() {
		return "0%"
	}
	return percent.String() + "%"
}

// ParseCents accepts "12", "12.3", "12.34" or "$12.34" and rounds to whole cents.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

func ValidPercent(percent decimal.Decimal) bool {
	return !percent.IsNegative() && percent.LessThanOrEqual(hundred)
}

// PercentChange returns |current-previous| / |previous| * 100 rounded to two places.
// previous must be non-zero.
func PercentChange(current, previous int64) decimal.Decimal {
	diff := decimal.NewFromInt(current - previous).Abs()
	return diff.Mul(hundred).DivRound(decimal.NewFromInt(previous).Abs(), 2)
}
