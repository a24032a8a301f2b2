package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSV writes the session archive as flat files in one directory:
// sessions.csv, positions.csv, matches.csv and orders.csv.
type CSV struct {
	sessions, positions, matches, orders *csv.Writer
	files                                []*os.File
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSV{}
	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)

		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.sessions, err = open("sessions.csv", []string{
		"session_id", "run_at", "keys", "legs", "matches", "virtuals", "orders", "violations", "realized_pnl",
	}); err != nil {
		return nil, err
	}
	if j.positions, err = open("positions.csv", []string{
		"session_id", "account_id", "symbol", "kind", "side", "position_id",
		"quantity", "available", "cost_basis", "cost_amount", "covered", "opened_at",
	}); err != nil {
		return nil, err
	}
	if j.matches, err = open("matches.csv", []string{
		"session_id", "account_id", "symbol", "open_seq", "close_seq",
		"quantity", "open_price", "close_price", "covered", "realized_pnl",
	}); err != nil {
		return nil, err
	}
	if j.orders, err = open("orders.csv", []string{
		"session_id", "account_id", "symbol", "side", "quantity_cap", "limit_price",
	}); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordSession(s SessionRow) error {
	err := j.sessions.Write([]string{
		s.SessionID,
		s.RunAt.Format(time.RFC3339),
		i(s.Keys), i(s.Legs), i(s.Matches), i(s.Virtuals), i(s.Orders), i(s.Violations),
		f(s.RealizedPnL),
	})
	if err != nil {
		return err
	}
	j.sessions.Flush()
	return j.sessions.Error()
}

func (j *CSV) RecordPositions(rows []PositionRow) error {
	for _, r := range rows {
		err := j.positions.Write([]string{
			r.SessionID, r.AccountID, r.Symbol, r.Kind, r.Side, r.PositionID,
			n(r.Quantity), n(r.Available), f(r.CostBasis), f(r.CostAmount),
			strconv.FormatBool(r.Covered),
			r.OpenedAt.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	j.positions.Flush()
	return j.positions.Error()
}

func (j *CSV) RecordMatches(rows []MatchRow) error {
	for _, r := range rows {
		err := j.matches.Write([]string{
			r.SessionID, r.AccountID, r.Symbol,
			n(r.OpenSeq), n(r.CloseSeq), n(r.Quantity),
			f(r.OpenPrice), f(r.ClosePrice),
			strconv.FormatBool(r.Covered),
			f(r.RealizedPnL),
		})
		if err != nil {
			return err
		}
	}
	j.matches.Flush()
	return j.matches.Error()
}

func (j *CSV) RecordOrders(rows []OrderRow) error {
	for _, r := range rows {
		err := j.orders.Write([]string{
			r.SessionID, r.AccountID, r.Symbol, r.Side,
			n(r.QuantityCap), f(r.LimitPrice),
		})
		if err != nil {
			return err
		}
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSV) Close() error {
	for _, w := range []*csv.Writer{j.sessions, j.positions, j.matches, j.orders} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, f := range j.files {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func f(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
func n(x int64) string   { return strconv.FormatInt(x, 10) }
func i(x int) string     { return strconv.Itoa(x) }
