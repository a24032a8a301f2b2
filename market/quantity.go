package market

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Quantity is a share count. It is never negative: construction and
// subtraction both enforce the invariant.
type Quantity struct {
	n int64
}

func NewQuantity(n int64) (Quantity, error) {
	if n < 0 {
		return Quantity{}, fmt.Errorf("quantity must be non-negative, got %d", n)
	}
	return Quantity{n: n}, nil
}

// Qty is a fixture constructor for values known to be valid. It panics
// on negative input.
func Qty(n int64) Quantity {
	q, err := NewQuantity(n)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64() int64   { return q.n }
func (q Quantity) IsZero() bool   { return q.n == 0 }
func (q Quantity) String() string { return strconv.FormatInt(q.n, 10) }

func (q Quantity) Add(o Quantity) Quantity { return Quantity{n: q.n + o.n} }

// Sub returns q - o, failing if the result would be negative.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if o.n > q.n {
		return Quantity{}, fmt.Errorf("quantity underflow: %d - %d", q.n, o.n)
	}
	return Quantity{n: q.n - o.n}, nil
}

func (q Quantity) LessThan(o Quantity) bool    { return q.n < o.n }
func (q Quantity) GreaterThan(o Quantity) bool { return q.n > o.n }
func (q Quantity) Equal(o Quantity) bool       { return q.n == o.n }

func (q Quantity) Decimal() decimal.Decimal { return decimal.NewFromInt(q.n) }

// MinQuantity returns the smaller of a and b.
func MinQuantity(a, b Quantity) Quantity {
	if a.n < b.n {
		return a
	}
	return b
}
