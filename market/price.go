package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a non-negative per-share price. Arithmetic is exact decimal;
// float64 only appears at construction and display boundaries.
type Price struct {
	d decimal.Decimal
}

func NewPrice(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, fmt.Errorf("price must be non-negative, got %s", d)
	}
	return Price{d: d}, nil
}

func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return NewPrice(d)
}

// Px is a fixture constructor. It panics on negative input.
func Px(f float64) Price {
	p, err := NewPrice(decimal.NewFromFloat(f))
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Decimal() decimal.Decimal { return p.d }
func (p Price) IsZero() bool             { return p.d.IsZero() }
func (p Price) Equal(o Price) bool       { return p.d.Equal(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) String() string           { return p.d.String() }

// Mul returns the monetary value of q shares at this price.
func (p Price) Mul(q Quantity) Money {
	return Money{d: p.d.Mul(q.Decimal())}
}

// Scale multiplies the price by a plain factor, e.g. 0.95 for a 5%
// stop-loss band.
func (p Price) Scale(factor float64) Price {
	return Price{d: p.d.Mul(decimal.NewFromFloat(factor))}
}

// Money is a signed monetary amount (realized P&L, caps, valuations).
type Money struct {
	d decimal.Decimal
}

func MoneyFromDecimal(d decimal.Decimal) Money { return Money{d: d} }

// Amt is a fixture constructor.
func Amt(f float64) Money { return Money{d: decimal.NewFromFloat(f)} }

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money               { return Money{d: m.d.Neg()} }
func (m Money) String() string           { return m.d.String() }

// Ratio returns m / total. Total must be non-zero.
func (m Money) Ratio(total Money) decimal.Decimal {
	return m.d.Div(total.d)
}

// Float64 is for display and journaling only; engine math stays decimal.
func (m Money) Float64() float64 { return m.d.InexactFloat64() }
