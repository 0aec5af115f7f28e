package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every Money value carries.
const MoneyScale int32 = 4

// Rounding names how a value is brought to a coarser scale.
type Rounding int

const (
	RoundHalfEven Rounding = iota
	RoundHalfUp
	RoundDown
	RoundUp
	RoundCeiling
	RoundFloor
)

// Money is an immutable fixed-point amount. Every arithmetic result is
// normalized to MoneyScale with half-even rounding. The zero value is 0.
type Money struct {
	amount decimal.Decimal
}

// NewMoney normalizes d to the canonical scale.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d.RoundBank(MoneyScale)}
}

// MoneyFromInt builds a whole amount.
func MoneyFromInt(v int64) Money {
	return NewMoney(decimal.NewFromInt(v))
}

// ParseMoney parses a decimal string such as "1250.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, NewValidationError("amount", fmt.Sprintf("invalid decimal %q", s))
	}
	return NewMoney(d), nil
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount.
func Zero() Money { return Money{} }

func (m Money) Add(o Money) Money { return NewMoney(m.amount.Add(o.amount)) }

func (m Money) Sub(o Money) Money { return NewMoney(m.amount.Sub(o.amount)) }

// Mul multiplies by a scalar (a quantity, a rate) and rounds half-even.
func (m Money) Mul(factor decimal.Decimal) Money { return NewMoney(m.amount.Mul(factor)) }

// MulMoney multiplies two amounts, e.g. quantity times unit price.
func (m Money) MulMoney(o Money) Money { return m.Mul(o.amount) }

// Div divides by a scalar, rounding to precision with the given mode and
// then normalizing to the canonical scale.
func (m Money) Div(divisor decimal.Decimal, precision int32, mode Rounding) (Money, error) {
	if divisor.IsZero() {
		return Money{}, NewValidationError("divisor", "division by zero")
	}
	q := m.amount.DivRound(divisor, precision+8)
	return NewMoney(round(q, precision, mode)), nil
}

// Round brings the amount to a coarser scale.
func (m Money) Round(scale int32, mode Rounding) Money {
	return NewMoney(round(m.amount, scale, mode))
}

func round(d decimal.Decimal, scale int32, mode Rounding) decimal.Decimal {
	switch mode {
	case RoundHalfUp:
		return d.Round(scale)
	case RoundDown:
		return d.RoundDown(scale)
	case RoundUp:
		return d.RoundUp(scale)
	case RoundCeiling:
		return d.RoundCeil(scale)
	case RoundFloor:
		return d.RoundFloor(scale)
	default:
		return d.RoundBank(scale)
	}
}

// FitsScale reports whether the amount has no digits beyond scale.
func (m Money) FitsScale(scale int32) bool {
	return m.amount.Equal(m.amount.Truncate(scale))
}

func (m Money) Neg() Money { return Money{amount: m.amount.Neg()} }

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

func (m Money) Equal(o Money) bool       { return m.amount.Equal(o.amount) }
func (m Money) GreaterThan(o Money) bool { return m.amount.GreaterThan(o.amount) }
func (m Money) LessThan(o Money) bool    { return m.amount.LessThan(o.amount) }

// Decimal exposes the underlying value for persistence and reporting.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// String renders the canonical fixed-scale form, e.g. "12.5000".
func (m Money) String() string { return m.amount.StringFixed(MoneyScale) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Money) UnmarshalText(data []byte) error {
	parsed, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

var currencyScales = map[string]int32{
	"JPY": 0, "KRW": 0, "CLP": 0, "PYG": 0,
	"BHD": 3, "KWD": 3, "OMR": 3, "JOD": 3, "TND": 3,
}

// CurrencyScale returns the minor-unit digits of an ISO-4217 currency.
func CurrencyScale(currency string) int32 {
	if s, ok := currencyScales[currency]; ok {
		return s
	}
	return 2
}

// ValidateCurrency accepts three upper-case ASCII letters.
func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return NewValidationError("currency", fmt.Sprintf("invalid ISO-4217 code %q", currency))
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return NewValidationError("currency", fmt.Sprintf("invalid ISO-4217 code %q", currency))
		}
	}
	return nil
}
