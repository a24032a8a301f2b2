package journal

import (
	"database/sql"
	"fmt"
)

// GetSession returns one session summary by ID.
func (j *SQLite) GetSession(sessionID string) (SessionRow, error) {
	var s SessionRow

	row := j.db.QueryRow(`
		SELECT session_id, run_at, keys, legs, matches, virtuals, orders, violations, realized_pnl
		FROM sessions
		WHERE session_id = ?`, sessionID)

	err := row.Scan(
		&s.SessionID,
		&s.RunAt,
		&s.Keys,
		&s.Legs,
		&s.Matches,
		&s.Virtuals,
		&s.Orders,
		&s.Violations,
		&s.RealizedPnL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return SessionRow{}, fmt.Errorf("session %q not found", sessionID)
		}
		return SessionRow{}, err
	}
	return s, nil
}

// LatestSession returns the most recently recorded session summary.
func (j *SQLite) LatestSession() (SessionRow, error) {
	var id string
	row := j.db.QueryRow(`SELECT session_id FROM sessions ORDER BY run_at DESC, session_id DESC LIMIT 1`)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return SessionRow{}, fmt.Errorf("archive is empty")
		}
		return SessionRow{}, err
	}
	return j.GetSession(id)
}

// ListPositions returns a session's archived positions, Real before
// Virtual within each key.
func (j *SQLite) ListPositions(sessionID string) ([]PositionRow, error) {
	rows, err := j.db.Query(`
		SELECT session_id, account_id, symbol, kind, side, position_id,
		       quantity, available, cost_basis, cost_amount, covered, opened_at
		FROM positions
		WHERE session_id = ?
		ORDER BY account_id, symbol, kind`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRow
	for rows.Next() {
		var r PositionRow
		if err := rows.Scan(
			&r.SessionID, &r.AccountID, &r.Symbol, &r.Kind, &r.Side, &r.PositionID,
			&r.Quantity, &r.Available, &r.CostBasis, &r.CostAmount, &r.Covered, &r.OpenedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMatches returns a session's matches in close order.
func (j *SQLite) ListMatches(sessionID string) ([]MatchRow, error) {
	rows, err := j.db.Query(`
		SELECT session_id, account_id, symbol, open_seq, close_seq,
		       quantity, open_price, close_price, covered, realized_pnl
		FROM matches
		WHERE session_id = ?
		ORDER BY account_id, symbol, close_seq, open_seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRow
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(
			&r.SessionID, &r.AccountID, &r.Symbol, &r.OpenSeq, &r.CloseSeq,
			&r.Quantity, &r.OpenPrice, &r.ClosePrice, &r.Covered, &r.RealizedPnL,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOrders returns a session's derived authorizations.
func (j *SQLite) ListOrders(sessionID string) ([]OrderRow, error) {
	rows, err := j.db.Query(`
		SELECT session_id, account_id, symbol, side, quantity_cap, limit_price
		FROM orders
		WHERE session_id = ?
		ORDER BY account_id, symbol, side`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var r OrderRow
		if err := rows.Scan(
			&r.SessionID, &r.AccountID, &r.Symbol, &r.Side, &r.QuantityCap, &r.LimitPrice,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
