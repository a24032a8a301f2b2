// Package journal archives completed sessions: the post-match position
// book, the day's matches, derived order authorizations, and a summary
// row per session. SQLite is the queryable archive, CSV the flat
// export.
package journal

import "time"

// SessionRow is the per-session summary record.
type SessionRow struct {
	SessionID   string
	RunAt       time.Time
	Keys        int
	Legs        int
	Matches     int
	Virtuals    int
	Orders      int
	Violations  int
	RealizedPnL float64
}

// PositionRow is one archived position, Real or Virtual.
type PositionRow struct {
	SessionID  string
	AccountID  string
	Symbol     string
	Kind       string
	Side       string
	PositionID string
	Quantity   int64
	Available  int64
	CostBasis  float64
	CostAmount float64
	Covered    bool
	OpenedAt   time.Time
}

// MatchRow is one archived open/close pairing.
type MatchRow struct {
	SessionID   string
	AccountID   string
	Symbol      string
	OpenSeq     int64
	CloseSeq    int64
	Quantity    int64
	OpenPrice   float64
	ClosePrice  float64
	Covered     bool
	RealizedPnL float64
}

// OrderRow is one archived next-session authorization.
type OrderRow struct {
	SessionID   string
	AccountID   string
	Symbol      string
	Side        string
	QuantityCap int64
	LimitPrice  float64
}

// Journal persists one session's output.
type Journal interface {
	RecordSession(SessionRow) error
	RecordPositions([]PositionRow) error
	RecordMatches([]MatchRow) error
	RecordOrders([]OrderRow) error
	Close() error
}
