// Package pricing computes stay totals and converts money to minor units.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
)

var hundred = decimal.NewFromInt(100)

// Nights is the number of whole days between check-in and check-out,
// never less than one.
func Nights(checkIn, checkOut time.Time) int {
	n := calendar.DaysBetween(checkIn, checkOut)
	if n < 1 {
		return 1
	}
	return n
}

// Total is rate × nights.
func Total(rate decimal.Decimal, checkIn, checkOut time.Time) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(Nights(checkIn, checkOut))))
}

// ToCents converts an amount to integer cents, rounding half up
// (half away from zero for negative amounts).
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DiffCents is round((newTotal - oldTotal) * 100).
func DiffCents(newTotal, oldTotal decimal.Decimal) int64 {
	return ToCents(newTotal.Sub(oldTotal))
}
