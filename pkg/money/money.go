// Package money provides currency-safe billing arithmetic using integer fen
// and the Fowler Money pattern. Billing statements carry CNY amounts with two
// fractional digits; all subtotal arithmetic happens on minor units so the
// report never accumulates float drift.
package money

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CNY is the only currency the billing pipeline deals in.
const CNY = "CNY"

// Amount represents a CNY monetary value with fen precision.
// It wraps go-money for safe arithmetic and shopspring/decimal for parsing.
type Amount struct {
	m *money.Money
}

// New creates an Amount from fen (minor units).
func New(fen int64) *Amount {
	return &Amount{m: money.New(fen, CNY)}
}

// Zero returns a zero Amount.
func Zero() *Amount {
	return New(0)
}

// Parse parses a statement amount string such as "123.45" into an Amount.
// The extractor guarantees exactly two fractional digits, but any decimal
// string is accepted and rounded to fen.
func Parse(s string) (*Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return NewFromDecimal(d), nil
}

// NewFromDecimal creates an Amount from a decimal yuan value.
func NewFromDecimal(d decimal.Decimal) *Amount {
	fen := d.Mul(decimal.New(1, 2)).Round(0).IntPart()
	return New(fen)
}

// Fen returns the amount in minor units.
func (a *Amount) Fen() int64 {
	if a == nil || a.m == nil {
		return 0
	}
	return a.m.Amount()
}

// IsZero returns true if the amount is zero.
func (a *Amount) IsZero() bool {
	return a == nil || a.m == nil || a.m.IsZero()
}

// Add adds two Amounts. Both operands are always CNY, so the currency
// mismatch error from go-money cannot occur.
func (a *Amount) Add(other *Amount) *Amount {
	if a == nil || a.m == nil {
		return other
	}
	if other == nil || other.m == nil {
		return a
	}
	result, err := a.m.Add(other.m)
	if err != nil {
		panic(err)
	}
	return &Amount{m: result}
}

// Equals reports whether two Amounts have the same value.
func (a *Amount) Equals(other *Amount) bool {
	return a.Fen() == other.Fen()
}

// ToDecimal converts to a decimal yuan value.
func (a *Amount) ToDecimal() decimal.Decimal {
	return decimal.New(a.Fen(), -2)
}

// Float64 returns the yuan value as a float for spreadsheet cells. The
// spreadsheet's own 0.00 number format controls the display precision.
func (a *Amount) Float64() float64 {
	f, _ := a.ToDecimal().Float64()
	return f
}

// String renders the amount with exactly two fractional digits, e.g. "123.45".
func (a *Amount) String() string {
	return a.ToDecimal().StringFixed(2)
}

// Sum adds a sequence of Amounts.
func Sum(amounts ...*Amount) *Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
