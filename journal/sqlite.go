package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSession(s SessionRow) error {
	_, err := j.db.Exec(`
		INSERT INTO sessions
		(session_id, run_at, keys, legs, matches, virtuals, orders, violations, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.RunAt, s.Keys, s.Legs, s.Matches,
		s.Virtuals, s.Orders, s.Violations, s.RealizedPnL,
	)
	return err
}

func (j *SQLite) RecordPositions(rows []PositionRow) error {
	return j.batch(func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(`
				INSERT INTO positions
				(session_id, account_id, symbol, kind, side, position_id,
				 quantity, available, cost_basis, cost_amount, covered, opened_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.SessionID, r.AccountID, r.Symbol, r.Kind, r.Side, r.PositionID,
				r.Quantity, r.Available, r.CostBasis, r.CostAmount, r.Covered, r.OpenedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *SQLite) RecordMatches(rows []MatchRow) error {
	return j.batch(func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(`
				INSERT INTO matches
				(session_id, account_id, symbol, open_seq, close_seq,
				 quantity, open_price, close_price, covered, realized_pnl)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.SessionID, r.AccountID, r.Symbol, r.OpenSeq, r.CloseSeq,
				r.Quantity, r.OpenPrice, r.ClosePrice, r.Covered, r.RealizedPnL,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *SQLite) RecordOrders(rows []OrderRow) error {
	return j.batch(func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.Exec(`
				INSERT INTO orders
				(session_id, account_id, symbol, side, quantity_cap, limit_price)
				VALUES (?, ?, ?, ?, ?, ?)`,
				r.SessionID, r.AccountID, r.Symbol, r.Side, r.QuantityCap, r.LimitPrice,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// batch runs fn in a transaction so a half-written session never lands
// in the archive.
func (j *SQLite) batch(fn func(*sql.Tx) error) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
