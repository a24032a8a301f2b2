package quota

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qstrat/t0ledger/market"
)

var quotaKey = market.NewKey("A1", "600000")

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestRollCoreFormula(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))

	// 10000 x 0.8 + 500
	got, err := r.Roll(quotaKey, day(2), []Event{
		{Symbol: "600000", Type: Special, Factor: decimal.NewFromFloat(0.8), Amount: market.Amt(500)},
	})
	require.NoError(t, err)

	assert.True(t, got.Previous.Equal(market.Amt(10000)))
	assert.True(t, got.Current.Equal(market.Amt(8500)), "got %s", got.Current)
	assert.True(t, r.Current(quotaKey).Equal(market.Amt(8500)))
	assert.True(t, got.PreviousDate.Equal(day(1)))
	assert.True(t, got.CurrentDate.Equal(day(2)))
}

func TestRollNoEventsCarriesQuota(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))

	got, err := r.Roll(quotaKey, day(2), nil)
	require.NoError(t, err)
	assert.True(t, got.Current.Equal(market.Amt(10000)))
	assert.True(t, got.Factor.Equal(decimal.NewFromInt(1)))
}

func TestRollCompositeFactor(t *testing.T) {
	t.Parallel()

	// Bonus 3-for-10 and a 1-into-2 split on the same day multiply:
	// (1/1.3) x (1/2).
	events := []Event{
		{Symbol: "600000", Type: BonusShare, Factor: BonusFactor(0.3)},
		{Symbol: "600000", Type: Split, Factor: SplitFactor(2)},
	}
	af := CompositeFactor(events)

	want := decimal.NewFromInt(1).Div(decimal.NewFromFloat(2.6))
	assert.True(t, af.Sub(want).Abs().LessThan(decimal.NewFromFloat(1e-12)), "got %s", af)
}

func TestRollDividendAddsAmount(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))

	// Cash dividend leaves the factor at 1 and adjusts through E_T:
	// 0.5 per share over 1000 shares.
	got, err := r.Roll(quotaKey, day(2), []Event{
		{
			Symbol: "600000",
			Type:   Dividend,
			Factor: decimal.NewFromInt(1),
			Amount: DividendAmount(market.Px(0.5), market.Qty(1000)),
		},
	})
	require.NoError(t, err)
	assert.True(t, got.Current.Equal(market.Amt(10500)), "got %s", got.Current)
}

func TestRightsFactor(t *testing.T) {
	t.Parallel()

	// 10-rights-3 at 8 against a 10 price: (10 + 8x0.3)/1.3/10 = 0.9538...
	af, err := RightsFactor(market.Px(10), market.Px(8), 0.3)
	require.NoError(t, err)

	want := decimal.NewFromFloat(12.4).Div(decimal.NewFromFloat(13))
	assert.True(t, af.Sub(want).Abs().LessThan(decimal.NewFromFloat(1e-12)), "got %s", af)

	_, err = RightsFactor(market.Px(0), market.Px(8), 0.3)
	assert.Error(t, err)
}

func TestRollUnknownKeyStartsFromZero(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	got, err := r.Roll(quotaKey, day(2), []Event{
		{Symbol: "600000", Type: Special, Factor: decimal.NewFromInt(1), Amount: market.Amt(300)},
	})
	require.NoError(t, err)
	assert.True(t, got.Previous.IsZero())
	assert.True(t, got.Current.Equal(market.Amt(300)))
}

func TestRollRejectsNonPositiveFactor(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))

	_, err := r.Roll(quotaKey, day(2), []Event{
		{Symbol: "600000", Type: Split, Factor: decimal.Zero},
	})
	require.ErrorIs(t, err, ErrBadFactor)

	// A failed roll must not move the state.
	assert.True(t, r.Current(quotaKey).Equal(market.Amt(10000)))
}

func TestRollHistory(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))

	_, err := r.Roll(quotaKey, day(2), nil)
	require.NoError(t, err)
	_, err = r.Roll(quotaKey, day(3), []Event{
		{Symbol: "600000", Type: Special, Factor: decimal.NewFromFloat(0.5)},
	})
	require.NoError(t, err)

	hist := r.History(quotaKey)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Current.Equal(market.Amt(10000)))
	assert.True(t, hist[1].Current.Equal(market.Amt(5000)))
}

func TestStatesSorted(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(market.NewKey("A2", "000001"), market.Amt(1), day(1))
	r.Initialize(market.NewKey("A1", "600519"), market.Amt(2), day(1))
	r.Initialize(market.NewKey("A1", "600000"), market.Amt(3), day(1))

	states := r.States()
	require.Len(t, states, 3)
	assert.Equal(t, "600000", states[0].Key.Symbol)
	assert.Equal(t, "600519", states[1].Key.Symbol)
	assert.Equal(t, "A2", states[2].Key.AccountID)
}

func TestReset(t *testing.T) {
	t.Parallel()

	r := NewRoller()
	r.Initialize(quotaKey, market.Amt(10000), day(1))
	r.Reset(quotaKey)

	assert.True(t, r.Current(quotaKey).IsZero())
}
