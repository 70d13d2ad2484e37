package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every amount carries.
const MoneyScale = 3

// MoneyIntegerDigits bounds the integer part so amounts fit NUMERIC(14,3).
const MoneyIntegerDigits = 11

// Money is a non-float currency amount with exactly MoneyScale decimals.
// The zero value is 0.000.
type Money struct {
	d decimal.Decimal
}

var Zero = Money{}

// NewMoney parses a decimal string. Values with more than MoneyScale
// significant fractional digits are rejected rather than rounded.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, Wrap(KindInvalidAmount, fmt.Sprintf("parsing amount %q", s), err)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal bounds the magnitude before rounding. Rounding rescales
// the coefficient, so an extreme exponent must never reach it.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Zero, nil
	}
	magnitude := d.NumDigits() + int(d.Exponent())
	if magnitude > MoneyIntegerDigits {
		return Money{}, InvalidAmount("amount has more than %d integer digits", MoneyIntegerDigits)
	}
	if magnitude <= -MoneyScale {
		return Money{}, InvalidAmount("amount has more than %d decimal places", MoneyScale)
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return Money{}, InvalidAmount("amount %s has more than %d decimal places", d, MoneyScale)
	}
	return Money{d: d.Round(MoneyScale)}, nil
}

// MustMoney is NewMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }

func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

// MulRate multiplies by a rate and rounds half away from zero to MoneyScale.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Round(MoneyScale)}
}

// InRange reports whether m fits the stored precision.
func (m Money) InRange() bool {
	_, err := MoneyFromDecimal(m.d)
	return err == nil
}

// MulInt multiplies by a whole quantity, e.g. a passenger count.
func (m Money) MulInt(n int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(n)))}
}

func MinMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

func SumMoney(amounts ...Money) Money {
	sum := Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum
}

func (m Money) String() string {
	return m.d.StringFixed(MoneyScale)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.500" and 12.5. null leaves m unchanged.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scanning money: %w", err)
	}
	parsed, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
