package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qstrat/t0ledger/market"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSnapshot(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "positions.csv",
		"account_id,symbol,quantity,available,cost_basis\n"+
			"A1,600000,1000,600,10.00\n"+
			"A1,600519,20,20,1500.50\n")

	records, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A1", records[0].AccountID)
	assert.Equal(t, "600000", records[0].Symbol)
	assert.Equal(t, int64(1000), records[0].Quantity)
	assert.Equal(t, int64(600), records[0].Available)
	assert.True(t, records[0].CostBasis.Equal(market.Px(10)))
	assert.True(t, records[1].CostBasis.Equal(market.Px(1500.5)))
}

func TestReadSnapshotErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errLike string
	}{
		{
			"bad header",
			"acct,symbol,quantity,available,cost_basis\nA1,600000,1,1,10\n",
			"unexpected csv header",
		},
		{
			"bad quantity",
			"account_id,symbol,quantity,available,cost_basis\nA1,600000,abc,1,10\n",
			"line 2: quantity",
		},
		{
			"negative price",
			"account_id,symbol,quantity,available,cost_basis\nA1,600000,1,1,-10\n",
			"line 2",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadSnapshot(writeFile(t, "positions.csv", tt.content))
			assert.ErrorContains(t, err, tt.errLike)
		})
	}
}

func TestReadLegs(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "legs.csv",
		"account_id,symbol,direction,quantity,price,seq,time\n"+
			"A1,600000,SELL,600,10.5,1,2026-03-02T09:31:00Z\n"+
			"A1,600000,BUY,600,10.2,2,2026-03-02T10:05:00Z\n")

	legs, err := ReadLegs(path)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.Equal(t, market.NewKey("A1", "600000"), legs[0].Key)
	assert.Equal(t, market.Sell, legs[0].Direction)
	assert.Equal(t, int64(600), legs[0].Quantity.Int64())
	assert.True(t, legs[0].Price.Equal(market.Px(10.5)))
	assert.Equal(t, uint64(2), legs[1].Seq)
	assert.Equal(t, 2026, legs[1].Time.Year())
}

func TestReadLegsRejectsBadDirection(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "legs.csv",
		"account_id,symbol,direction,quantity,price,seq,time\n"+
			"A1,600000,HOLD,600,10.5,1,2026-03-02T09:31:00Z\n")

	_, err := ReadLegs(path)
	assert.ErrorContains(t, err, "unknown direction")
}
