// Package ledger holds the session position book: Real positions loaded
// from the prior end-of-day snapshot and Virtual positions created by
// same-day trading. The Ledger is the single owner of all mutation.
package ledger

import (
	"time"

	"github.com/qstrat/t0ledger/market"
)

// Kind tags a position as genuinely held inventory or a temporary
// day-trade artifact.
type Kind string

const (
	Real    Kind = "REAL"
	Virtual Kind = "VIRTUAL"
)

// Side is the direction of a Virtual position. Real positions are
// always Long.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Position is one (account, symbol) holding.
//
// For Virtual shorts, Covered marks fragments financed from own Real
// inventory (the shares left the Real bucket at open time); uncovered
// fragments represent borrowed shares. Only uncovered shorts count
// against effective holdings.
type Position struct {
	Key       market.Key
	Kind      Kind
	Side      Side
	ID        string // ULID, Virtual positions only
	Quantity  market.Quantity
	Available market.Quantity
	CostBasis market.Price
	Covered   bool
	OpenedAt  time.Time
}

// Frozen is the held-but-unavailable share count.
func (p *Position) Frozen() market.Quantity {
	f, err := p.Quantity.Sub(p.Available)
	if err != nil {
		// available > quantity is rejected at load and preserved by
		// every mutation below.
		panic(err)
	}
	return f
}

// CostAmount is quantity x cost basis.
func (p *Position) CostAmount() market.Money {
	return p.CostBasis.Mul(p.Quantity)
}

// SignedQuantity is the position's contribution to effective holdings:
// positive for Real and Virtual longs, negative for uncovered Virtual
// shorts, zero for covered shorts (those shares already left the Real
// bucket when the open leg applied).
func (p *Position) SignedQuantity() int64 {
	switch {
	case p.Side == Short && p.Covered:
		return 0
	case p.Side == Short:
		return -p.Quantity.Int64()
	default:
		return p.Quantity.Int64()
	}
}

// Reduce removes q sold shares from both quantity and availability.
func (p *Position) Reduce(q market.Quantity) error {
	if p.Available.LessThan(q) {
		return ErrInsufficientAvailable
	}
	var err error
	if p.Quantity, err = p.Quantity.Sub(q); err != nil {
		return err
	}
	p.Available, err = p.Available.Sub(q)
	return err
}

// Restore returns q bought-back shares to both quantity and
// availability at the original cost basis. Used when a covered
// sell-first fragment is closed: the open/close price difference is
// carried entirely in realized P&L.
func (p *Position) Restore(q market.Quantity) {
	p.Quantity = p.Quantity.Add(q)
	p.Available = p.Available.Add(q)
}

// Increase settles q bought shares directly into the position and
// recomputes the weighted-average cost basis. Same-day buys settle
// T+1, so availability does not grow until the next snapshot.
func (p *Position) Increase(q market.Quantity, px market.Price) {
	if q.IsZero() {
		return
	}
	total := p.Quantity.Add(q)
	avg := p.CostAmount().Add(px.Mul(q)).Decimal().Div(total.Decimal())
	cost, err := market.NewPrice(avg)
	if err != nil {
		panic(err) // unreachable: both inputs are non-negative
	}
	p.CostBasis = cost
	p.Quantity = total
}

// Clone returns an independent copy.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}
