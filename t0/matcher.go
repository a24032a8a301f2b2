// Package t0 pairs same-day open and close trade legs for a single
// instrument key. Matching is strict FIFO: the earliest unmatched
// opening fragment meets the earliest closing leg, ordered by timestamp
// then sequence number, and a leg may be split across several matches
// when quantities do not align.
package t0

import (
	"errors"
	"fmt"

	"github.com/qstrat/t0ledger/internal/id"
	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

var (
	// ErrInvalidLeg rejects malformed legs: wrong key, zero quantity,
	// zero price. The whole batch is refused, nothing is applied.
	ErrInvalidLeg = errors.New("invalid trade leg")

	// ErrAmbiguousDirection rejects leg sequences that would mix
	// sell-first and buy-first opens without full closure in between.
	// A closing leg larger than the remaining open quantity is the
	// observable form: its tail cannot be told apart from an
	// opposite-variant open, so it is rejected, not guessed.
	ErrAmbiguousDirection = errors.New("ambiguous t0 direction")

	// ErrUnbalancedLegs is the internal consistency assertion: total
	// matched quantity plus still-open quantity must equal total opened
	// quantity. It should never trigger.
	ErrUnbalancedLegs = errors.New("matched quantity does not reconcile with opened quantity")
)

// Result is the outcome of matching one key's legs.
type Result struct {
	Key market.Key

	// Real is the post-trade Real position, nil when the key had no
	// snapshot position and no direct buy settlement created one.
	Real *ledger.Position

	// Virtuals are opening fragments still unmatched at end of day,
	// flagged for operator attention.
	Virtuals []*ledger.Position

	Matches []market.Match

	Opened      market.Quantity
	Matched     market.Quantity
	RealizedPnL market.Money
}

// fragment is the unmatched remainder of one opening leg.
type fragment struct {
	leg       market.TradeLeg
	remaining market.Quantity
	covered   bool
}

type matcher struct {
	key     market.Key
	variant ledger.Side
	real    *ledger.Position
	queue   []*fragment

	opened  market.Quantity
	matched market.Quantity
	matches []market.Match
}

// MatchKey consumes the key's same-day legs against its pre-trade Real
// position (nil if none) and produces the matches, the updated Real
// position, and any Virtual positions left open. The input position is
// not mutated.
func MatchKey(key market.Key, real *ledger.Position, legs []market.TradeLeg) (*Result, error) {
	for _, leg := range legs {
		if leg.Key != key {
			return nil, fmt.Errorf("%w: leg #%d keyed %s, want %s", ErrInvalidLeg, leg.Seq, leg.Key, key)
		}
		if leg.Quantity.IsZero() {
			return nil, fmt.Errorf("%w: leg #%d has zero quantity", ErrInvalidLeg, leg.Seq)
		}
		if leg.Price.IsZero() {
			return nil, fmt.Errorf("%w: leg #%d has zero price", ErrInvalidLeg, leg.Seq)
		}
		if leg.Direction != market.Buy && leg.Direction != market.Sell {
			return nil, fmt.Errorf("%w: leg #%d direction %q", ErrInvalidLeg, leg.Seq, leg.Direction)
		}
	}

	sorted := append([]market.TradeLeg(nil), legs...)
	market.SortLegs(sorted)

	m := &matcher{key: key}
	if real != nil {
		m.real = real.Clone()
	}

	for _, leg := range sorted {
		if m.variant == "" {
			if leg.Direction == market.Sell {
				m.variant = ledger.Short
			} else {
				m.variant = ledger.Long
			}
		}

		opening := (leg.Direction == market.Sell) == (m.variant == ledger.Short)
		var err error
		if opening {
			err = m.open(leg)
		} else {
			err = m.close(leg)
		}
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		Key:     key,
		Real:    m.real,
		Matches: m.matches,
		Opened:  m.opened,
		Matched: m.matched,
	}
	for _, mt := range m.matches {
		res.RealizedPnL = res.RealizedPnL.Add(mt.RealizedPnL)
	}
	for _, f := range m.queue {
		res.Virtuals = append(res.Virtuals, &ledger.Position{
			Key:       key,
			Kind:      ledger.Virtual,
			Side:      m.variant,
			ID:        id.New(),
			Quantity:  f.remaining,
			CostBasis: f.leg.Price,
			Covered:   f.covered,
			OpenedAt:  f.leg.Time,
		})
	}

	if err := reconcile(res.Opened, res.Matched, m.remainingOpen()); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return res, nil
}

// open handles an opening leg. In sell-first sessions the leg is split
// at apply time: the part backed by Real availability reduces the Real
// position and queues as a covered fragment, the rest queues as an
// uncovered (borrowed) fragment. The matcher itself never sees a
// fragment spanning both kinds.
func (m *matcher) open(leg market.TradeLeg) error {
	if m.variant == ledger.Short {
		cover := market.Qty(0)
		if m.real != nil {
			cover = market.MinQuantity(leg.Quantity, m.real.Available)
		}
		if !cover.IsZero() {
			if err := m.real.Reduce(cover); err != nil {
				return &ledger.InvariantError{Key: m.key, Msg: err.Error()}
			}
			m.queue = append(m.queue, &fragment{leg: leg, remaining: cover, covered: true})
		}
		uncovered, err := leg.Quantity.Sub(cover)
		if err != nil {
			return &ledger.InvariantError{Key: m.key, Msg: err.Error()}
		}
		if !uncovered.IsZero() {
			m.queue = append(m.queue, &fragment{leg: leg, remaining: uncovered})
		}
	} else {
		m.queue = append(m.queue, &fragment{leg: leg, remaining: leg.Quantity})
	}

	m.opened = m.opened.Add(leg.Quantity)
	return nil
}

// close handles a closing-direction leg: FIFO consumption of open
// fragments, or direct settlement against the Real position when
// nothing is open.
func (m *matcher) close(leg market.TradeLeg) error {
	if len(m.queue) == 0 {
		return m.settleDirect(leg)
	}

	if m.remainingOpen().LessThan(leg.Quantity) {
		return fmt.Errorf("%w: %s close leg #%d quantity %s exceeds open quantity %s",
			ErrAmbiguousDirection, m.key, leg.Seq, leg.Quantity, m.remainingOpen())
	}

	left := leg.Quantity
	for !left.IsZero() {
		f := m.queue[0]
		take := market.MinQuantity(left, f.remaining)

		m.matches = append(m.matches, market.Match{
			Key:         m.key,
			OpenSeq:     f.leg.Seq,
			CloseSeq:    leg.Seq,
			Quantity:    take,
			OpenPrice:   f.leg.Price,
			ClosePrice:  leg.Price,
			Covered:     f.covered,
			RealizedPnL: realized(m.variant, f.leg.Price, leg.Price, take),
		})

		if f.covered {
			// Bought-back shares rejoin the Real position at original
			// cost; the price difference lives in realized P&L.
			m.real.Restore(take)
		}

		var err error
		if f.remaining, err = f.remaining.Sub(take); err != nil {
			return &ledger.InvariantError{Key: m.key, Msg: err.Error()}
		}
		if left, err = left.Sub(take); err != nil {
			return &ledger.InvariantError{Key: m.key, Msg: err.Error()}
		}
		m.matched = m.matched.Add(take)

		if f.remaining.IsZero() {
			m.queue = m.queue[1:]
		}
	}
	return nil
}

// settleDirect applies a closing-direction leg that arrives with no
// open fragments. In a sell-first session the buy settles into Real
// inventory at weighted-average cost; in a buy-first session the sell
// reduces Real availability and the borrow path is refused.
func (m *matcher) settleDirect(leg market.TradeLeg) error {
	if m.variant == ledger.Short {
		if m.real == nil {
			m.real = &ledger.Position{
				Key:  m.key,
				Kind: ledger.Real,
				Side: ledger.Long,
			}
		}
		m.real.Increase(leg.Quantity, leg.Price)
		return nil
	}

	if m.real == nil || m.real.Available.LessThan(leg.Quantity) {
		return fmt.Errorf("%w: %s sell leg #%d quantity %s",
			ledger.ErrInsufficientAvailable, m.key, leg.Seq, leg.Quantity)
	}
	return m.real.Reduce(leg.Quantity)
}

func (m *matcher) remainingOpen() market.Quantity {
	total := market.Qty(0)
	for _, f := range m.queue {
		total = total.Add(f.remaining)
	}
	return total
}

// realized computes per-match P&L: quantity x (close - open) for long
// opens, quantity x (open - close) for short opens.
func realized(variant ledger.Side, open, close market.Price, q market.Quantity) market.Money {
	diff := close.Decimal().Sub(open.Decimal())
	if variant == ledger.Short {
		diff = diff.Neg()
	}
	return market.MoneyFromDecimal(diff.Mul(q.Decimal()))
}

// reconcile asserts matching completeness for one key.
func reconcile(opened, matched, stillOpen market.Quantity) error {
	if matched.Add(stillOpen).Int64() != opened.Int64() {
		return fmt.Errorf("%w: opened=%s matched=%s open=%s",
			ErrUnbalancedLegs, opened, matched, stillOpen)
	}
	return nil
}
