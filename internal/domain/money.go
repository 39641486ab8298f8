package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a currency amount with two decimal places. The API sends amounts
// as decimal strings ("299.00") or, for computed totals, as JSON numbers.
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney parses a decimal string such as "299.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// MustMoney is NewMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromInt returns a whole amount.
func MoneyFromInt(n int64) Money {
	return Money{amount: decimal.NewFromInt(n)}
}

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// Mul returns m*qty rounded half away from zero to two decimals.
func (m Money) Mul(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty))).Round(2)}
}

func (m Money) Equal(o Money) bool       { return m.amount.Equal(o.amount) }
func (m Money) GreaterThan(o Money) bool { return m.amount.GreaterThan(o.amount) }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsPositive() bool         { return m.amount.IsPositive() }

// Decimal exposes the underlying amount.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// String formats the amount with exactly two decimals.
func (m Money) String() string { return m.amount.StringFixed(2) }

// MarshalJSON encodes the amount as a two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string, a number, or null (zero).
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		m.amount = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	m.amount = d
	return nil
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
