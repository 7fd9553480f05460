// Package money provides an integer minor-unit money type.
//
// Amounts are stored as int64 cents. Decimal text is converted at the
// boundary only (JSON, request parsing, display), so arithmetic inside the
// calculator never touches binary floating point.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by a Money value.
const Scale = 2

var (
	// ErrTooPrecise is returned when a decimal carries more than two fractional digits.
	ErrTooPrecise = errors.New("monetary values must have at most 2 decimal places")
	// ErrUnsupportedCurrency is returned for currencies that are not 2-decimal ISO 4217 codes.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor units (cents).
type Money int64

// Cents returns the amount as a raw minor-unit count.
func (m Money) Cents() int64 {
	return int64(m)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -Scale)
}

// String renders the amount with exactly two decimals, e.g. "10.34" or "-0.05".
func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// Display renders the amount with the currency symbol, e.g. "$10.34".
func (m Money) Display(currency string) string {
	return gomoney.New(int64(m), normalizeCode(currency)).Display()
}

// Parse converts decimal text in major units ("12.3", "12.30", "-1.05") to Money.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a major-unit decimal to Money. Values with more than
// two significant fractional digits are rejected rather than rounded.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrTooPrecise)
	}
	if cents.Abs().GreaterThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Money(cents.IntPart()), nil
}

// Sum adds the given amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Percent returns part/whole as a percentage rounded to two decimals.
// A zero whole yields zero. Used for display only.
func Percent(part, whole Money) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(whole)), 2)
}

// CheckCurrency verifies that code is a known ISO 4217 currency using two
// fractional digits.
func CheckCurrency(code string) error {
	c := gomoney.GetCurrency(normalizeCode(code))
	if c == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	if c.Fraction != Scale {
		return fmt.Errorf("%w: %s uses %d decimal places", ErrUnsupportedCurrency, c.Code, c.Fraction)
	}
	return nil
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return gomoney.USD
	}
	return code
}
