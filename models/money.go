package models

import (
	"bytes"
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Balances, prices and payouts all use it so
// that credits and debits are exact. Conversions to and from dollar
// amounts go through decimal.Decimal.
type Money int64

// MaxAmount bounds a single price or payout at one trillion dollars, so a
// balance cannot overflow through any realistic number of credits.
const MaxAmount Money = 100_000_000_000_000

var ErrAmountOutOfRange = errors.New("money: amount out of range")

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// FromDecimal rounds a dollar amount to whole cents, half away from zero.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return 0, nil
	}
	// |d| < 10^magnitude. Checked before scaling so huge exponents are
	// rejected without expanding them.
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if magnitude > 17 {
		return 0, ErrAmountOutOfRange
	}
	if magnitude < -3 {
		return 0, nil
	}
	cents := d.Shift(2).Round(0)
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, ErrAmountOutOfRange
	}
	return Money(cents.IntPart()), nil
}

// NewMoney converts a float dollar amount, rejecting NaN, infinities and
// amounts that do not fit in cents.
func NewMoney(dollars float64) (Money, error) {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0, ErrAmountOutOfRange
	}
	return FromDecimal(decimal.NewFromFloat(dollars))
}

// FromFloat is NewMoney for amounts known to be valid. It panics otherwise.
func FromFloat(dollars float64) Money {
	m, err := NewMoney(dollars)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in dollars.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Dollars returns the amount as a float dollar value.
func (m Money) Dollars() float64 {
	return m.Decimal().InexactFloat64()
}

// String renders the amount the way the marketplace displays it, e.g. "$1045.50".
func (m Money) String() string {
	d := m.Decimal()
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// MarshalJSON encodes the amount as a dollar number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number of dollars. Strings are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return errors.New("money: amount must be a number")
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
