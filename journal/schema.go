package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	underlying TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	strike REAL NOT NULL,
	contracts INTEGER NOT NULL,
	notional REAL NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	trade_date DATETIME NOT NULL,
	close_date DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL,
	rule_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	date DATETIME NOT NULL,
	cash REAL NOT NULL,
	open_trades INTEGER NOT NULL,
	open_notional REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_date ON equity(date);
CREATE INDEX IF NOT EXISTS idx_trades_close_date ON trades(close_date);
`
