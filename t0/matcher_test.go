package t0

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

var testKey = market.NewKey("A1", "600000")

func at(hh, mm int) time.Time {
	return time.Date(2026, 3, 2, hh, mm, 0, 0, time.UTC)
}

func leg(d market.Direction, qty int64, px float64, seq uint64, t time.Time) market.TradeLeg {
	return market.TradeLeg{
		Key:       testKey,
		Direction: d,
		Quantity:  market.Qty(qty),
		Price:     market.Px(px),
		Seq:       seq,
		Time:      t,
	}
}

func realPosition(qty, avail int64, cost float64) *ledger.Position {
	return &ledger.Position{
		Key:       testKey,
		Kind:      ledger.Real,
		Side:      ledger.Long,
		Quantity:  market.Qty(qty),
		Available: market.Qty(avail),
		CostBasis: market.Px(cost),
	}
}

func TestMatchFIFOOrdering(t *testing.T) {
	t.Parallel()

	// Two sell opens, one buy close spanning both. The close must pair
	// with the earlier open first and split across the boundary.
	res, err := MatchKey(testKey, nil, []market.TradeLeg{
		leg(market.Sell, 100, 10.0, 1, at(9, 31)),
		leg(market.Sell, 50, 10.1, 2, at(9, 40)),
		leg(market.Buy, 120, 9.8, 3, at(9, 50)),
	})
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, uint64(1), res.Matches[0].OpenSeq)
	assert.Equal(t, uint64(3), res.Matches[0].CloseSeq)
	assert.Equal(t, int64(100), res.Matches[0].Quantity.Int64())
	assert.Equal(t, uint64(2), res.Matches[1].OpenSeq)
	assert.Equal(t, uint64(3), res.Matches[1].CloseSeq)
	assert.Equal(t, int64(20), res.Matches[1].Quantity.Int64())

	require.Len(t, res.Virtuals, 1)
	v := res.Virtuals[0]
	assert.Equal(t, ledger.Virtual, v.Kind)
	assert.Equal(t, ledger.Short, v.Side)
	assert.False(t, v.Covered)
	assert.Equal(t, int64(30), v.Quantity.Int64())
	assert.True(t, v.CostBasis.Equal(market.Px(10.1)))
	assert.NotEmpty(t, v.ID)

	assert.Equal(t, int64(150), res.Opened.Int64())
	assert.Equal(t, int64(120), res.Matched.Int64())
}

func TestMatchCoveredRoundTrip(t *testing.T) {
	t.Parallel()

	before := realPosition(1000, 1000, 10)
	res, err := MatchKey(testKey, before, []market.TradeLeg{
		leg(market.Sell, 600, 10.5, 1, at(9, 31)),
		leg(market.Buy, 600, 10.2, 2, at(10, 5)),
	})
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, int64(600), m.Quantity.Int64())
	assert.True(t, m.Covered)
	// 600 x (10.5 - 10.2)
	assert.True(t, m.RealizedPnL.Equal(market.Amt(180)), "got %s", m.RealizedPnL)
	assert.True(t, res.RealizedPnL.Equal(market.Amt(180)))

	// Shares went out covered and came back: the Real position ends the
	// day exactly where it started, at the original cost basis.
	require.NotNil(t, res.Real)
	assert.Equal(t, int64(1000), res.Real.Quantity.Int64())
	assert.Equal(t, int64(1000), res.Real.Available.Int64())
	assert.True(t, res.Real.CostBasis.Equal(market.Px(10)))
	assert.Empty(t, res.Virtuals)

	// Input position untouched.
	assert.Equal(t, int64(1000), before.Quantity.Int64())
	assert.Equal(t, int64(1000), before.Available.Int64())
}

func TestMatchRejectsOverflowingClose(t *testing.T) {
	t.Parallel()

	// Sell 100, then buys for 130 total: the last 30 bought shares could
	// be a buy-first open, so the batch is ambiguous.
	_, err := MatchKey(testKey, nil, []market.TradeLeg{
		leg(market.Sell, 100, 10.0, 1, at(9, 31)),
		leg(market.Buy, 50, 9.9, 2, at(9, 45)),
		leg(market.Buy, 80, 9.8, 3, at(10, 0)),
	})
	assert.ErrorIs(t, err, ErrAmbiguousDirection)
}

func TestMatchSplitsCoveredAndUncovered(t *testing.T) {
	t.Parallel()

	// 400 available out of 1000 held: a 600-share sell covers 400 from
	// own inventory and borrows 200.
	res, err := MatchKey(testKey, realPosition(1000, 400, 10), []market.TradeLeg{
		leg(market.Sell, 600, 10.5, 1, at(9, 31)),
		leg(market.Buy, 500, 10.2, 2, at(13, 10)),
	})
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.True(t, res.Matches[0].Covered)
	assert.Equal(t, int64(400), res.Matches[0].Quantity.Int64())
	assert.False(t, res.Matches[1].Covered)
	assert.Equal(t, int64(100), res.Matches[1].Quantity.Int64())

	// 500 x (10.5 - 10.2)
	assert.True(t, res.RealizedPnL.Equal(market.Amt(150)), "got %s", res.RealizedPnL)

	// The covered 400 are fully bought back.
	require.NotNil(t, res.Real)
	assert.Equal(t, int64(1000), res.Real.Quantity.Int64())
	assert.Equal(t, int64(400), res.Real.Available.Int64())

	require.Len(t, res.Virtuals, 1)
	assert.False(t, res.Virtuals[0].Covered)
	assert.Equal(t, int64(100), res.Virtuals[0].Quantity.Int64())
}

func TestMatchDirectBuySettlement(t *testing.T) {
	t.Parallel()

	// Sell and buy back 100, then keep buying with nothing open: the
	// extra 600 settle straight into the Real position at weighted cost,
	// without touching same-day availability.
	res, err := MatchKey(testKey, realPosition(400, 400, 10), []market.TradeLeg{
		leg(market.Sell, 100, 10.3, 1, at(9, 31)),
		leg(market.Buy, 100, 10.1, 2, at(9, 50)),
		leg(market.Buy, 600, 10.2, 3, at(14, 30)),
	})
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(100), res.Matches[0].Quantity.Int64())

	require.NotNil(t, res.Real)
	assert.Equal(t, int64(1000), res.Real.Quantity.Int64())
	assert.Equal(t, int64(400), res.Real.Available.Int64())
	// (400*10 + 600*10.2) / 1000
	assert.True(t, res.Real.CostBasis.Equal(market.Px(10.12)), "got %s", res.Real.CostBasis)
}

func TestMatchDirectBuyCreatesPosition(t *testing.T) {
	t.Parallel()

	res, err := MatchKey(testKey, nil, []market.TradeLeg{
		leg(market.Sell, 100, 10.3, 1, at(9, 31)),
		leg(market.Buy, 100, 10.1, 2, at(9, 50)),
		leg(market.Buy, 200, 10.0, 3, at(14, 30)),
	})
	require.NoError(t, err)

	require.NotNil(t, res.Real)
	assert.Equal(t, int64(200), res.Real.Quantity.Int64())
	assert.Equal(t, int64(0), res.Real.Available.Int64())
	assert.True(t, res.Real.CostBasis.Equal(market.Px(10.0)))
}

func TestMatchBuyFirstVariant(t *testing.T) {
	t.Parallel()

	res, err := MatchKey(testKey, nil, []market.TradeLeg{
		leg(market.Buy, 200, 10.0, 1, at(9, 31)),
		leg(market.Sell, 150, 10.4, 2, at(11, 0)),
	})
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(150), res.Matches[0].Quantity.Int64())
	// 150 x (10.4 - 10.0)
	assert.True(t, res.RealizedPnL.Equal(market.Amt(60)), "got %s", res.RealizedPnL)

	require.Len(t, res.Virtuals, 1)
	assert.Equal(t, ledger.Long, res.Virtuals[0].Side)
	assert.Equal(t, int64(50), res.Virtuals[0].Quantity.Int64())
	assert.Nil(t, res.Real)
}

func TestMatchBuyFirstDirectSell(t *testing.T) {
	t.Parallel()

	legs := func(extra int64) []market.TradeLeg {
		return []market.TradeLeg{
			leg(market.Buy, 100, 10.0, 1, at(9, 31)),
			leg(market.Sell, 100, 10.2, 2, at(10, 0)),
			leg(market.Sell, extra, 10.3, 3, at(14, 0)),
		}
	}

	// Idle sell within prior-day availability reduces the Real position.
	res, err := MatchKey(testKey, realPosition(100, 50, 9.5), legs(40))
	require.NoError(t, err)
	require.NotNil(t, res.Real)
	assert.Equal(t, int64(60), res.Real.Quantity.Int64())
	assert.Equal(t, int64(10), res.Real.Available.Int64())

	// Beyond availability there is nothing to borrow against in a
	// buy-first session.
	_, err = MatchKey(testKey, realPosition(100, 50, 9.5), legs(60))
	assert.ErrorIs(t, err, ledger.ErrInsufficientAvailable)
}

func TestMatchRejectsMalformedLegs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		leg  market.TradeLeg
	}{
		{"zero quantity", leg(market.Buy, 100, 10, 1, at(9, 31))},
		{"zero price", leg(market.Buy, 100, 10, 1, at(9, 31))},
		{"wrong key", leg(market.Buy, 100, 10, 1, at(9, 31))},
	}
	tests[0].leg.Quantity = market.Qty(0)
	tests[1].leg.Price = market.Px(0)
	tests[2].leg.Key = market.NewKey("A2", "600519")

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := MatchKey(testKey, nil, []market.TradeLeg{tt.leg})
			assert.ErrorIs(t, err, ErrInvalidLeg)
		})
	}
}

func TestMatchNoLegs(t *testing.T) {
	t.Parallel()

	res, err := MatchKey(testKey, realPosition(500, 500, 12), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Virtuals)
	assert.Equal(t, int64(500), res.Real.Quantity.Int64())
}

func TestMatchConservesEffectiveHoldings(t *testing.T) {
	t.Parallel()

	// before + net buys - net sells must equal the effective holdings
	// after matching, with covered shorts contributing zero.
	res, err := MatchKey(testKey, realPosition(1000, 400, 10), []market.TradeLeg{
		leg(market.Sell, 600, 10.5, 1, at(9, 31)),
		leg(market.Buy, 100, 10.2, 2, at(13, 10)),
	})
	require.NoError(t, err)

	after := res.Real.SignedQuantity()
	for _, v := range res.Virtuals {
		after += v.SignedQuantity()
	}
	assert.Equal(t, int64(1000+100-600), after)
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	assert.NoError(t, reconcile(market.Qty(100), market.Qty(60), market.Qty(40)))
	assert.ErrorIs(t, reconcile(market.Qty(100), market.Qty(60), market.Qty(30)), ErrUnbalancedLegs)
}
