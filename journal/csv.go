package journal

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rustyeddy/rulesim/calendar"
)

var (
	tradeHeader  = []string{"trade_id", "underlying", "asset_class", "instrument", "direction", "strike", "contracts", "notional", "open_price", "close_price", "trade_date", "close_date", "realized_pl", "reason", "rule_id"}
	equityHeader = []string{"date", "cash", "open_trades", "open_notional"}
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

// NewCSV creates both files and writes their header rows.
func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{tw, ew, tf, ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Underlying,
		t.AssetClass,
		t.Instrument,
		t.Direction,
		f(t.Strike),
		strconv.Itoa(t.Contracts),
		f(t.Notional),
		f(t.OpenPrice),
		f(t.ClosePrice),
		calendar.Format(t.TradeDate),
		calendar.Format(t.CloseDate),
		f(t.RealizedPL),
		t.Reason,
		t.RuleID,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		calendar.Format(e.Date),
		f(e.Cash),
		strconv.Itoa(e.OpenTrades),
		f(e.OpenNotional),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
