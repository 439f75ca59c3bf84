// Package journal persists closed trades and daily equity snapshots.
package journal

import (
	"time"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/trade"
)

// TradeRecord is a closed trade as written to a journal.
type TradeRecord struct {
	TradeID    string
	Underlying string
	AssetClass string
	Instrument string
	Direction  string
	Strike     float64
	Contracts  int
	Notional   float64
	OpenPrice  float64
	ClosePrice float64
	TradeDate  time.Time
	CloseDate  time.Time
	RealizedPL float64
	Reason     string
	RuleID     string
}

// EquitySnapshot is the account state at the end of a simulation day.
type EquitySnapshot struct {
	Date         time.Time
	Cash         float64
	OpenTrades   int
	OpenNotional float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromTrade flattens a closed trade. Reason and RuleID come from the
// closing message. Bills report accrued interest as realised P/L.
func FromTrade(t *trade.Trade) TradeRecord {
	rec := TradeRecord{
		TradeID:    t.ID,
		Underlying: t.Underlying,
		AssetClass: string(t.AssetClass),
		Instrument: string(t.Type()),
		Direction:  string(t.Direction),
		Contracts:  t.Contracts,
		Notional:   t.NotionalAmount,
		OpenPrice:  t.OpenPrice,
		ClosePrice: t.ClosePrice,
		TradeDate:  t.TradeDate,
		CloseDate:  t.ValueDate,
		RealizedPL: t.PnL(),
	}
	if k, ok := t.Strike(); ok {
		rec.Strike = k
	}
	if m, ok := t.LastMessage(); ok && m.Action.Closing() {
		rec.Reason = string(m.Action)
		rec.RuleID = m.RuleID
	}
	if rate, ok := t.InterestRate(); ok && t.Type() == trade.TreasuryBill {
		days := float64(calendar.DaysBetween(t.TradeDate, t.ValueDate))
		rec.RealizedPL = t.NotionalAmount * rate * days / 365
	}
	return rec
}

// Discard drops every record.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) Close() error { return nil }
