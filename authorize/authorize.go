// Package authorize derives the next-session order authorizations from
// the post-match position book: how much of each holding may be sold,
// how much may be bought back under the holding cap and the rolled
// quota, and the limit prices both sides must respect.
package authorize

import (
	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

// Params shape the derived authorizations.
type Params struct {
	// MaxQuantity is the per-key holding cap buys may grow toward.
	// Zero disables buy authorizations entirely.
	MaxQuantity int64

	// LotSize rounds buy caps down to whole lots. Zero means 100.
	LotSize int64

	// BuyBand and SellBand are price-band ratios around cost basis:
	// buys are authorized up to cost x (1 + BuyBand), sells down to
	// cost x (1 - SellBand).
	BuyBand  float64
	SellBand float64

	// BlockedSymbols get no authorization at all on either side.
	BlockedSymbols []string

	// KeyQuotas are value-denominated buying-power caps per key, rolled
	// forward by the quota package from corporate action events. When a
	// key is present, its buy cap is also limited to the share count the
	// quota affords at cost basis. Absent keys fall back to MaxQuantity
	// alone.
	KeyQuotas map[market.Key]market.Money
}

func (p Params) lot() int64 {
	if p.LotSize <= 0 {
		return 100
	}
	return p.LotSize
}

// Record is one derived order authorization.
type Record struct {
	Key         market.Key
	Side        market.Direction
	QuantityCap market.Quantity
	LimitPrice  market.Price
}

// Derive walks the snapshot's Real positions in key order and emits
// sell and buy authorizations. Keys still carrying an open Virtual
// position are excluded from authorization and returned separately for
// the session report, including keys holding only a Virtual position.
// Derivation is pure: calling it twice on the same snapshot yields
// identical output.
func Derive(snap ledger.Snapshot, p Params) ([]Record, []market.Key) {
	open := snap.VirtualKeys()
	blocked := make(map[string]bool, len(p.BlockedSymbols))
	for _, s := range p.BlockedSymbols {
		blocked[s] = true
	}

	var records []Record
	var excluded []market.Key
	seen := make(map[market.Key]bool)
	for _, pos := range snap.Reals() {
		seen[pos.Key] = true
		if open[pos.Key] || blocked[pos.Key.Symbol] {
			excluded = append(excluded, pos.Key)
			continue
		}

		if !pos.Available.IsZero() {
			records = append(records, Record{
				Key:         pos.Key,
				Side:        market.Sell,
				QuantityCap: pos.Available,
				LimitPrice:  pos.CostBasis.Scale(1 - p.SellBand),
			})
		}

		if p.MaxQuantity > 0 {
			room := p.MaxQuantity - pos.Quantity.Int64()
			if q, ok := p.KeyQuotas[pos.Key]; ok {
				if affordable := quotaShares(q, pos.CostBasis); affordable < room {
					room = affordable
				}
			}
			room -= room % p.lot()
			if room > 0 {
				records = append(records, Record{
					Key:         pos.Key,
					Side:        market.Buy,
					QuantityCap: market.Qty(room),
					LimitPrice:  pos.CostBasis.Scale(1 + p.BuyBand),
				})
			}
		}
	}

	// Virtual-only keys (an unclosed open on a symbol absent from the
	// snapshot) never produce orders either; report them with the rest.
	for _, v := range snap.Virtuals() {
		if !seen[v.Key] {
			seen[v.Key] = true
			excluded = append(excluded, v.Key)
		}
	}
	return records, excluded
}

// quotaShares is the share count a value quota affords at cost basis,
// floored. A zero cost basis affords nothing: without a price the quota
// cannot be converted.
func quotaShares(q market.Money, cost market.Price) int64 {
	if cost.IsZero() || q.IsNegative() {
		return 0
	}
	return q.Decimal().Div(cost.Decimal()).IntPart()
}
