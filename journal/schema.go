// journal/schema.go
package journal

// Times are stored as unix nanoseconds (UTC) so range scans and the
// nearest-in-time ordering compare integers. Money is stored as decimal text.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('LONG', 'SHORT')),
	quantity REAL NOT NULL CHECK (quantity > 0),
	entry_time INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_time INTEGER,
	exit_price REAL,
	net_pnl TEXT,
	fingerprint TEXT NOT NULL,
	source_tag TEXT NOT NULL DEFAULT '',
	forced INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_owner_fingerprint ON trades(owner, fingerprint);
CREATE INDEX IF NOT EXISTS idx_trades_owner_entry ON trades(owner, entry_time);
CREATE INDEX IF NOT EXISTS idx_trades_match ON trades(owner, symbol, side, quantity, entry_time);

CREATE TABLE IF NOT EXISTS calendar_days (
	owner TEXT NOT NULL,
	date TEXT NOT NULL,
	daily_pnl TEXT,
	trades_count INTEGER NOT NULL DEFAULT 0,
	winning_trades INTEGER NOT NULL DEFAULT 0,
	losing_trades INTEGER NOT NULL DEFAULT 0,
	win_rate TEXT,
	notes TEXT NOT NULL DEFAULT '',
	mood TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (owner, date)
);
`
