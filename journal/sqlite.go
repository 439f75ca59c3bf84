package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, underlying, asset_class, instrument, direction, strike, contracts, notional,
		 open_price, close_price, trade_date, close_date, realized_pl, reason, rule_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Underlying, t.AssetClass, t.Instrument, t.Direction, t.Strike, t.Contracts, t.Notional,
		t.OpenPrice, t.ClosePrice, t.TradeDate, t.CloseDate, t.RealizedPL, t.Reason, t.RuleID,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(date, cash, open_trades, open_notional)
		VALUES (?, ?, ?, ?)`,
		e.Date, e.Cash, e.OpenTrades, e.OpenNotional,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
