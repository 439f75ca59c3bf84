package sim

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/backtest"
	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/journal"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/risk"
	"github.com/rustyeddy/rulesim/stream"
	"github.com/rustyeddy/rulesim/trade"
)

// Engine drives the date loop. Streams, risk and journal are optional.
type Engine struct {
	manager  *Manager
	market   market.Provider
	account  *account.Account
	streams  *stream.Manager
	risk     risk.Manager
	journal  journal.Journal
	riskFree float64
	log      *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

func WithStreams(s *stream.Manager) Option {
	return func(e *Engine) { e.streams = s }
}

func WithRisk(r risk.Manager) Option {
	return func(e *Engine) { e.risk = r }
}

// WithEquityJournal records an end-of-day equity snapshot to j.
func WithEquityJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithRiskFree sets the rate used for the Sharpe ratio.
func WithRiskFree(rate float64) Option {
	return func(e *Engine) { e.riskFree = rate }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// Result is everything a finished run produced.
type Result struct {
	Schedule *trade.Schedule
	Account  *account.Account
	Streams  []*stream.Stream
	Metrics  backtest.Metrics
	Start    time.Time
	End      time.Time
	Days     int
}

// NewEngine wires the trade manager to a market and an account.
func NewEngine(mgr *Manager, mkt market.Provider, acct *account.Account, opts ...Option) (*Engine, error) {
	if mgr == nil {
		return nil, fmt.Errorf("engine: trade manager is required")
	}
	if mkt == nil {
		return nil, fmt.Errorf("engine: market is required")
	}
	if acct == nil {
		return nil, fmt.Errorf("engine: account is required")
	}
	e := &Engine{
		manager: mgr,
		market:  mkt,
		account: acct,
		journal: journal.Discard{},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.journal == nil {
		e.journal = journal.Discard{}
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e, nil
}

// Run simulates each date in ascending order. Any error aborts the
// run. ctx is checked between dates.
func (e *Engine) Run(ctx context.Context, dates []time.Time) (*Result, error) {
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, calendar.Truncate(d))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	days = slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })
	if len(days) == 0 {
		return nil, fmt.Errorf("engine: no dates to simulate")
	}

	e.log.WithFields(logrus.Fields{
		"start": calendar.Format(days[0]),
		"end":   calendar.Format(days[len(days)-1]),
		"days":  len(days),
		"cash":  e.account.CashBalance(),
	}).Info("simulation started")

	for _, date := range days {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("engine: interrupted before %s: %w", calendar.Format(date), err)
		}
		if err := e.step(date); err != nil {
			return nil, err
		}
	}

	schedule := e.manager.Schedule()
	metrics, err := backtest.Evaluate(schedule.Trades(), e.account.InitialBalance(), e.riskFree)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Schedule: schedule,
		Account:  e.account,
		Metrics:  metrics,
		Start:    days[0],
		End:      days[len(days)-1],
		Days:     len(days),
	}
	if e.streams != nil {
		res.Streams = e.streams.Streams()
	}

	e.log.WithFields(logrus.Fields{
		"trades": schedule.Len(),
		"live":   len(schedule.Live()),
		"cash":   e.account.CashBalance(),
	}).Info("simulation finished")
	return res, nil
}

func (e *Engine) step(date time.Time) error {
	if err := e.manager.Step(date, e.market, e.account); err != nil {
		return err
	}
	if e.streams != nil {
		e.streams.Step(date)
	}

	live := e.manager.Schedule().Live()
	if e.risk != nil {
		if err := e.risk.Apply(e.account, live); err != nil {
			return fmt.Errorf("risk %s: %w", calendar.Format(date), err)
		}
	}

	snap := journal.EquitySnapshot{
		Date:       date,
		Cash:       e.account.CashBalance(),
		OpenTrades: len(live),
	}
	for _, t := range live {
		snap.OpenNotional += t.NotionalAmount
	}
	if err := e.journal.RecordEquity(snap); err != nil {
		return fmt.Errorf("journal equity %s: %w", calendar.Format(date), err)
	}
	return nil
}
