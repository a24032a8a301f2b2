package journal

import (
	"time"

	"github.com/qstrat/t0ledger/engine"
)

// Archive flattens one session report into journal rows.
func Archive(rep *engine.Report, runAt time.Time) (SessionRow, []PositionRow, []MatchRow, []OrderRow) {
	session := SessionRow{
		SessionID:   rep.SessionID,
		RunAt:       runAt,
		Keys:        rep.Summary.Keys,
		Legs:        rep.Summary.Legs,
		Matches:     rep.Summary.Matches,
		Virtuals:    rep.Summary.Virtuals,
		Orders:      rep.Summary.Orders,
		Violations:  rep.Summary.Violations,
		RealizedPnL: rep.Summary.RealizedPnL.Float64(),
	}

	var positions []PositionRow
	for _, p := range rep.Snapshot.Positions {
		positions = append(positions, PositionRow{
			SessionID:  rep.SessionID,
			AccountID:  p.Key.AccountID,
			Symbol:     p.Key.Symbol,
			Kind:       string(p.Kind),
			Side:       string(p.Side),
			PositionID: p.ID,
			Quantity:   p.Quantity.Int64(),
			Available:  p.Available.Int64(),
			CostBasis:  p.CostBasis.Decimal().InexactFloat64(),
			CostAmount: p.CostAmount().Float64(),
			Covered:    p.Covered,
			OpenedAt:   p.OpenedAt,
		})
	}

	var matches []MatchRow
	for _, m := range rep.Matches {
		matches = append(matches, MatchRow{
			SessionID:   rep.SessionID,
			AccountID:   m.Key.AccountID,
			Symbol:      m.Key.Symbol,
			OpenSeq:     int64(m.OpenSeq),
			CloseSeq:    int64(m.CloseSeq),
			Quantity:    m.Quantity.Int64(),
			OpenPrice:   m.OpenPrice.Decimal().InexactFloat64(),
			ClosePrice:  m.ClosePrice.Decimal().InexactFloat64(),
			Covered:     m.Covered,
			RealizedPnL: m.RealizedPnL.Float64(),
		})
	}

	var orders []OrderRow
	for _, o := range rep.Orders {
		orders = append(orders, OrderRow{
			SessionID:   rep.SessionID,
			AccountID:   o.Key.AccountID,
			Symbol:      o.Key.Symbol,
			Side:        string(o.Side),
			QuantityCap: o.QuantityCap.Int64(),
			LimitPrice:  o.LimitPrice.Decimal().InexactFloat64(),
		})
	}

	return session, positions, matches, orders
}

// Record writes one full session archive through any Journal backend.
func Record(j Journal, rep *engine.Report, runAt time.Time) error {
	session, positions, matches, orders := Archive(rep, runAt)

	if err := j.RecordSession(session); err != nil {
		return err
	}
	if err := j.RecordPositions(positions); err != nil {
		return err
	}
	if err := j.RecordMatches(matches); err != nil {
		return err
	}
	return j.RecordOrders(orders)
}
