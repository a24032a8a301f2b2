package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qstrat/t0ledger/authorize"
	"github.com/qstrat/t0ledger/engine"
	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

func TestArchiveFlattensReport(t *testing.T) {
	t.Parallel()

	key := market.NewKey("A1", "600000")
	rep := &engine.Report{
		SessionID: "S1",
		Snapshot: ledger.Snapshot{Positions: []ledger.Position{
			{
				Key: key, Kind: ledger.Real, Side: ledger.Long,
				Quantity: market.Qty(1000), Available: market.Qty(400),
				CostBasis: market.Px(10),
			},
			{
				Key: key, Kind: ledger.Virtual, Side: ledger.Short, ID: "01HVX",
				Quantity: market.Qty(100), CostBasis: market.Px(10.5),
			},
		}},
		Matches: []market.Match{
			{
				Key: key, OpenSeq: 1, CloseSeq: 2, Quantity: market.Qty(600),
				OpenPrice: market.Px(10.5), ClosePrice: market.Px(10.2),
				Covered: true, RealizedPnL: market.Amt(180),
			},
		},
		Orders: []authorize.Record{
			{Key: key, Side: market.Sell, QuantityCap: market.Qty(400), LimitPrice: market.Px(9.5)},
		},
		Summary: engine.Summary{Keys: 1, Legs: 2, Matches: 1, Virtuals: 1, Orders: 1,
			RealizedPnL: market.Amt(180)},
	}

	runAt := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	session, positions, matches, orders := Archive(rep, runAt)

	assert.Equal(t, "S1", session.SessionID)
	assert.True(t, session.RunAt.Equal(runAt))
	assert.InDelta(t, 180, session.RealizedPnL, 1e-9)

	require.Len(t, positions, 2)
	assert.Equal(t, "REAL", positions[0].Kind)
	assert.InDelta(t, 10000, positions[0].CostAmount, 1e-9)
	assert.Equal(t, "01HVX", positions[1].PositionID)

	require.Len(t, matches, 1)
	assert.Equal(t, int64(600), matches[0].Quantity)
	assert.True(t, matches[0].Covered)

	require.Len(t, orders, 1)
	assert.Equal(t, "SELL", orders[0].Side)
	assert.Equal(t, int64(400), orders[0].QuantityCap)
}
