package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidMoney    = errors.New("invalid money amount")
)

// Money is an exact decimal amount expressed in the major currency unit
// (dollars, euros). The zero value is a valid zero amount.
type Money struct {
	amount decimal.Decimal
}

func NewMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, value)
	}
	return Money{amount: d}, nil
}

// MustMoney is NewMoney for literals known to be valid.
func MustMoney(value string) Money {
	m, err := NewMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{amount: d}
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Times(q Quantity) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(q)))}
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// MinorUnits converts the amount to the processor's smallest currency unit,
// e.g. factor 100 turns 19.99 into 1999. Sub-unit remainders are rounded
// half away from zero.
func (m Money) MinorUnits(factor int64) int64 {
	return m.amount.Mul(decimal.NewFromInt(factor)).Round(0).IntPart()
}

func (m Money) String() string {
	return m.amount.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.amount.UnmarshalJSON(data)
}

// Scan reads NUMERIC columns.
func (m *Money) Scan(value any) error {
	return m.amount.Scan(value)
}

func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Quantity is a positive item count.
type Quantity int32

func NewQuantity(n int) (Quantity, error) {
	if n < 1 {
		return 0, ErrInvalidQuantity
	}
	return Quantity(n), nil
}

func (q Quantity) Int64() int64 {
	return int64(q)
}
