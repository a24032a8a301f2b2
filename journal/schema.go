package journal

const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	run_at DATETIME NOT NULL,
	keys INTEGER NOT NULL,
	legs INTEGER NOT NULL,
	matches INTEGER NOT NULL,
	virtuals INTEGER NOT NULL,
	orders INTEGER NOT NULL,
	violations INTEGER NOT NULL,
	realized_pnl REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	session_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	kind TEXT NOT NULL,
	side TEXT NOT NULL,
	position_id TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	available INTEGER NOT NULL,
	cost_basis REAL NOT NULL,
	cost_amount REAL NOT NULL,
	covered INTEGER NOT NULL,
	opened_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	session_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	open_seq INTEGER NOT NULL,
	close_seq INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	covered INTEGER NOT NULL,
	realized_pnl REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	session_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity_cap INTEGER NOT NULL,
	limit_price REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_session ON positions(session_id);
CREATE INDEX IF NOT EXISTS idx_matches_session ON matches(session_id);
CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id);
CREATE INDEX IF NOT EXISTS idx_sessions_run_at ON sessions(run_at);
`
