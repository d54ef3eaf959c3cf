// Package fixedpoint implements exact base-10 money arithmetic at 18
// fractional digits (the numeric(38,18) domain). Every monetary value in
// the system (prices, quantities, balances, fees) passes through this
// package; no floating point is involved in any computation.
package fixedpoint

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every amount carries.
const Scale = 18

var (
	ErrInvalidAmount  = errors.New("fixedpoint: invalid amount")
	ErrNegativeResult = errors.New("fixedpoint: negative result")
)

// Amount is a fixed-point decimal with at most Scale fractional digits.
// The zero value is "0".
type Amount struct {
	d decimal.Decimal
}

var Zero = Amount{}

// Parse converts a plain decimal string into an Amount. It rejects empty
// strings, signs, non-digit characters and fractional parts longer than
// Scale digits.
func Parse(s string) (Amount, error) {
	if err := validateString(s, false); err != nil {
		return Amount{}, err
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}

	return Amount{d}, nil
}

// ParseSigned is Parse with an optional leading minus sign, used for
// journal-line amounts where debits are negative.
func ParseSigned(s string) (Amount, error) {
	if err := validateString(s, true); err != nil {
		return Amount{}, err
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}

	return Amount{d}, nil
}

// MustParse is Parse for compile-time constants; it panics on bad input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func validateString(s string, signed bool) error {
	if s == "" {
		return fmt.Errorf("empty string: %w", ErrInvalidAmount)
	}

	body := s
	if signed && strings.HasPrefix(body, "-") {
		body = body[1:]
	}

	intPart := body
	fracPart := ""
	if i := strings.IndexByte(body, '.'); i >= 0 {
		intPart = body[:i]
		fracPart = body[i+1:]

		if fracPart == "" {
			return fmt.Errorf("%q: %w", s, ErrInvalidAmount)
		}
		if strings.IndexByte(fracPart, '.') >= 0 {
			return fmt.Errorf("%q: %w", s, ErrInvalidAmount)
		}
	}

	if intPart == "" {
		return fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	if len(fracPart) > Scale {
		return fmt.Errorf("%q has more than %d fractional digits: %w", s, Scale, ErrInvalidAmount)
	}

	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return fmt.Errorf("%q: %w", s, ErrInvalidAmount)
			}
		}
	}

	return nil
}

// FromDecimal adopts a decimal value, rejecting anything that does not fit
// the Scale-digit fractional domain.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return Amount{}, fmt.Errorf("%s exceeds %d fractional digits: %w", d, Scale, ErrInvalidAmount)
	}

	return Amount{d}, nil
}

// Decimal exposes the backing decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// String formats the amount in its canonical form: minimal trailing
// zeros, so formatting and re-parsing is idempotent.
func (a Amount) String() string {
	return a.d.String()
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.d.Add(b.d)}
}

// Sub subtracts b from a, rejecting results below zero. Balances and
// hold remainders must never be driven negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := a.d.Sub(b.d)
	if r.IsNegative() {
		return Amount{}, fmt.Errorf("%s - %s: %w", a, b, ErrNegativeResult)
	}

	return Amount{r}, nil
}

// MulRound multiplies and rounds half up at Scale digits. Used for
// fair-value conversions such as price times quantity.
func (a Amount) MulRound(b Amount) Amount {
	return Amount{a.d.Mul(b.d).Round(Scale)}
}

// MulCeil multiplies and rounds toward positive infinity at Scale digits.
func (a Amount) MulCeil(b Amount) Amount {
	return Amount{a.d.Mul(b.d).RoundCeil(Scale)}
}

func (a Amount) Neg() Amount {
	return Amount{a.d.Neg()}
}

func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// BpsFeeCeil computes ceil(amount * bps / 10000) at Scale digits: the fee
// for a basis-points rate, rounded so the house is never under-charged by
// a sub-unit. A zero rate yields exactly zero. Division by 10^4 is an
// exact exponent shift, so only the final ceiling rounds.
func BpsFeeCeil(amount Amount, bps int64) Amount {
	if bps <= 0 || !amount.IsPositive() {
		return Zero
	}

	fee := amount.d.Mul(decimal.NewFromInt(bps)).Shift(-4)

	return Amount{fee.RoundCeil(Scale)}
}

func (a Amount) Value() (driver.Value, error) {
	return a.d.Value()
}

func (a *Amount) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}

	a.d = d

	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return a.d.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.d.UnmarshalJSON(data)
}
