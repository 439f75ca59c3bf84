// Package backtest turns a finished run into performance metrics and a
// printable report.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/rulesim/trade"
)

// Metrics are computed over closed trades in schedule order.
type Metrics struct {
	Returns     []float64 // cumulative realised P/L over initial balance
	Drawdown    []float64
	MaxDrawdown float64
	Sharpe      float64
}

// Evaluate computes returns, drawdown and Sharpe ratio. Trades that are
// still open are skipped.
func Evaluate(trades []*trade.Trade, initialBalance, riskFree float64) (Metrics, error) {
	if initialBalance <= 0 {
		return Metrics{}, fmt.Errorf("evaluate: initial balance must be positive, got %g", initialBalance)
	}

	var m Metrics
	cumulative := 0.0
	for _, t := range trades {
		if !t.Closed() {
			continue
		}
		cumulative += t.PnL()
		m.Returns = append(m.Returns, cumulative/initialBalance)
	}

	peak := math.Inf(-1)
	for i, v := range m.Returns {
		peak = math.Max(peak, v)
		dd := 0.0
		if peak != 0 {
			dd = (peak - v) / peak
		}
		m.Drawdown = append(m.Drawdown, dd)
		if i == 0 || dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	if len(m.Returns) > 0 {
		mean, std := meanStd(m.Returns)
		if std != 0 {
			m.Sharpe = (mean - riskFree) / std
		}
	}
	return m, nil
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	sq := 0.0
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// Summary is the headline account view of a run.
type Summary struct {
	RunID    string
	Currency string

	Start time.Time
	End   time.Time

	Trades int
	Open   int
	Wins   int
	Losses int

	StartBalance float64
	EndCash      float64
	OpenNotional float64 // still committed to open trades
	EndBalance   float64 // cash plus open notional
	NetPL        float64
	ReturnPct    float64
	WinRate      float64
}

// Summarize counts closed trades by outcome and compares the starting
// balance with the account value at the end. endCash is the cash
// balance; notional still tied up in open trades is added back so an
// open position is not reported as a loss.
func Summarize(trades []*trade.Trade, startBalance, endCash float64) Summary {
	s := Summary{StartBalance: startBalance, EndCash: endCash}
	for _, t := range trades {
		switch {
		case t.IsOpen():
			s.Open++
			s.OpenNotional += t.NotionalAmount
		case t.Closed():
			s.Trades++
			if pl := t.PnL(); pl > 0 {
				s.Wins++
			} else if pl < 0 {
				s.Losses++
			}
		}
	}
	s.EndBalance = endCash + s.OpenNotional
	s.NetPL = s.EndBalance - startBalance
	if startBalance != 0 {
		s.ReturnPct = s.NetPL / startBalance * 100
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	return s
}
