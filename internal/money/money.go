package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a count of minor currency units (cents for USD) plus a currency code.
// All arithmetic inside the billing core is integer arithmetic on Minor; decimals
// only appear at the processor boundary and when parsing operator input.
type Amount struct {
	Minor    int64
	Currency string
}

// minorScale is the number of decimal digits represented by Minor.
// Zero-decimal currencies are not handled here; the processor rejects them upstream.
const minorScale = 2

func New(minor int64, currency string) Amount {
	return Amount{Minor: minor, Currency: currency}
}

// Parse converts a decimal string like "120.50" into minor units.
// Sub-minor precision (e.g. "1.005") is rejected rather than rounded.
func Parse(s string, currency string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d, currency)
}

func FromDecimal(d decimal.Decimal, currency string) (Amount, error) {
	shifted := d.Shift(minorScale)
	if !shifted.IsInteger() {
		return Amount{}, fmt.Errorf("amount %s has sub-minor precision", d)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount %s is negative", d)
	}
	return Amount{Minor: shifted.IntPart(), Currency: currency}, nil
}

// Decimal renders the amount in major units, e.g. 12050 -> 120.50.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Minor, -minorScale)
}

// String is the processor wire form: a plain decimal string, no currency symbol.
func (a Amount) String() string {
	return a.Decimal().StringFixed(minorScale)
}

func (a Amount) IsZero() bool     { return a.Minor == 0 }
func (a Amount) IsPositive() bool { return a.Minor > 0 }

// Add assumes same-currency operands; callers validate currencies up front
// (see SameCurrency) so arithmetic stays infallible.
func (a Amount) Add(b Amount) Amount {
	return Amount{Minor: a.Minor + b.Minor, Currency: a.Currency}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{Minor: a.Minor - b.Minor, Currency: a.Currency}
}

func Min(a, b Amount) Amount {
	if b.Minor < a.Minor {
		return b
	}
	return a
}

// SameCurrency reports whether every amount carries the same currency code.
// Zero amounts with an empty code are tolerated (synthetic placeholders).
func SameCurrency(amounts ...Amount) bool {
	cur := ""
	for _, a := range amounts {
		if a.Currency == "" && a.Minor == 0 {
			continue
		}
		if cur == "" {
			cur = a.Currency
			continue
		}
		if a.Currency != cur {
			return false
		}
	}
	return true
}
