// Package risk gates the post-match position book. Evaluation is a pure
// function over an immutable snapshot: violations come back as data and
// the caller decides what to do with them. Nothing here mutates
// positions or returns an error for a breached limit.
package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/qstrat/t0ledger/ledger"
	"github.com/qstrat/t0ledger/market"
)

// Limits are the hard gates applied to the end-of-session book. A zero
// value disables the corresponding check.
type Limits struct {
	// MaxPositionValue caps the exposure of a single (account, symbol)
	// bucket, valued at cost basis.
	MaxPositionValue market.Money

	// MaxAccountValue caps the summed exposure per account.
	MaxAccountValue market.Money

	// MaxConcentration caps a single symbol's share of its account's
	// total exposure, as a ratio in (0, 1].
	MaxConcentration float64

	// MaxT0Frequency caps the number of same-day round trips per
	// (account, symbol) bucket.
	MaxT0Frequency int

	// TopHoldings is how many of the largest exposures per account to
	// report as advisories. Zero means the default of three.
	TopHoldings int

	// BlockedSymbols refuse any non-flat position outright.
	BlockedSymbols []string
}

// Violation is one breached limit.
type Violation struct {
	Key  market.Key
	Code string
	Msg  string
}

// Exposure is one (account, symbol) bucket's valuation, reported for
// the per-account top-holdings advisory.
type Exposure struct {
	Key   market.Key
	Value market.Money
	Ratio float64 // share of the account's total exposure
}

// Decision is the outcome of one evaluation pass.
type Decision struct {
	Allowed    bool
	Violations []Violation

	// TopHoldings lists the largest exposures per account, advisory
	// only: they never flip Allowed on their own.
	TopHoldings []Exposure
}

func (d *Decision) add(key market.Key, code, msg string) {
	d.Violations = append(d.Violations, Violation{Key: key, Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate checks the snapshot against limits. Exposure per bucket is
// |effective quantity| x cost basis, so covered short fragments (whose
// shares already left the Real bucket) do not double count. activity
// carries the session's completed round-trip count per key for the
// frequency gate; nil means no activity.
func Evaluate(snap ledger.Snapshot, activity map[market.Key]int, limits Limits) Decision {
	d := Decision{Allowed: true}

	blocked := make(map[string]bool, len(limits.BlockedSymbols))
	for _, s := range limits.BlockedSymbols {
		blocked[s] = true
	}

	byKey := make(map[market.Key]market.Money)
	byAccount := make(map[string]market.Money)
	var keys []market.Key
	for _, p := range snap.Positions {
		if blocked[p.Key.Symbol] && !p.Quantity.IsZero() {
			d.add(p.Key, "SYMBOL_BLOCKED",
				fmt.Sprintf("symbol %s is on the blocked list", p.Key.Symbol))
		}

		v := exposure(p)
		if _, seen := byKey[p.Key]; !seen {
			keys = append(keys, p.Key)
		}
		byKey[p.Key] = byKey[p.Key].Add(v)
		byAccount[p.Key.AccountID] = byAccount[p.Key.AccountID].Add(v)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	maxConc := decimal.NewFromFloat(limits.MaxConcentration)
	for _, key := range keys {
		v := byKey[key]
		if !limits.MaxPositionValue.IsZero() && v.GreaterThan(limits.MaxPositionValue) {
			d.add(key, "POSITION_VALUE_TOO_HIGH",
				fmt.Sprintf("exposure %s exceeds per-position cap %s", v, limits.MaxPositionValue))
		}
		if limits.MaxConcentration > 0 && !byAccount[key.AccountID].IsZero() {
			if ratio := v.Ratio(byAccount[key.AccountID]); ratio.GreaterThan(maxConc) {
				d.add(key, "CONCENTRATION_TOO_HIGH",
					fmt.Sprintf("symbol holds %s of account exposure, cap %s",
						ratio.Round(4), maxConc))
			}
		}
	}

	if !limits.MaxAccountValue.IsZero() {
		accounts := make([]string, 0, len(byAccount))
		for a := range byAccount {
			accounts = append(accounts, a)
		}
		sort.Strings(accounts)
		for _, a := range accounts {
			if total := byAccount[a]; total.GreaterThan(limits.MaxAccountValue) {
				d.add(market.Key{AccountID: a}, "ACCOUNT_VALUE_TOO_HIGH",
					fmt.Sprintf("account exposure %s exceeds cap %s", total, limits.MaxAccountValue))
			}
		}
	}

	if limits.MaxT0Frequency > 0 {
		active := make([]market.Key, 0, len(activity))
		for k := range activity {
			active = append(active, k)
		}
		sort.Slice(active, func(i, j int) bool { return active[i].Less(active[j]) })
		for _, k := range active {
			if n := activity[k]; n > limits.MaxT0Frequency {
				d.add(k, "T0_FREQUENCY_TOO_HIGH",
					fmt.Sprintf("%d round trips exceed the per-key cap of %d", n, limits.MaxT0Frequency))
			}
		}
	}

	d.TopHoldings = topHoldings(keys, byKey, byAccount, limits.TopHoldings)
	return d
}

func exposure(p ledger.Position) market.Money {
	n := p.SignedQuantity()
	if n < 0 {
		n = -n
	}
	return p.CostBasis.Mul(market.Qty(n))
}

// topHoldings picks the n largest buckets per account, largest first,
// ties broken by key order for determinism.
func topHoldings(keys []market.Key, byKey map[market.Key]market.Money, byAccount map[string]market.Money, n int) []Exposure {
	if n <= 0 {
		n = 3
	}

	perAccount := make(map[string][]Exposure)
	for _, key := range keys {
		v := byKey[key]
		var ratio float64
		if total := byAccount[key.AccountID]; !total.IsZero() {
			ratio, _ = v.Ratio(total).Float64()
		}
		perAccount[key.AccountID] = append(perAccount[key.AccountID], Exposure{
			Key:   key,
			Value: v,
			Ratio: ratio,
		})
	}

	accounts := make([]string, 0, len(perAccount))
	for a := range perAccount {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	var out []Exposure
	for _, a := range accounts {
		es := perAccount[a]
		sort.SliceStable(es, func(i, j int) bool {
			if !es[i].Value.Equal(es[j].Value) {
				return es[j].Value.LessThan(es[i].Value)
			}
			return es[i].Key.Less(es[j].Key)
		})
		if len(es) > n {
			es = es[:n]
		}
		out = append(out, es...)
	}
	return out
}
