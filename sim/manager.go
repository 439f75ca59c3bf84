// Package sim runs the daily simulation loop: managing live trades,
// opening new ones, rolling streams and applying risk limits.
package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/journal"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/strategy"
	"github.com/rustyeddy/rulesim/trade"
)

// Manager is the per-day trade manager. It owns the trade schedule.
type Manager struct {
	sets     []*strategy.RuleSet
	schedule *trade.Schedule
	journal  journal.Journal
	log      *logrus.Entry
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithJournal records every closed trade to j.
func WithJournal(j journal.Journal) ManagerOption {
	return func(m *Manager) { m.journal = j }
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(l *logrus.Entry) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager builds a trade manager over the given rule sets.
func NewManager(sets []*strategy.RuleSet, opts ...ManagerOption) (*Manager, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no rule sets configured", rules.ErrInvalidConfig)
	}
	for i, s := range sets {
		if s == nil {
			return nil, fmt.Errorf("%w: rule set %d is nil", rules.ErrInvalidConfig, i)
		}
	}
	m := &Manager{
		sets:     sets,
		schedule: trade.NewSchedule(),
		journal:  journal.Discard{},
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.journal == nil {
		m.journal = journal.Discard{}
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	return m, nil
}

// Schedule returns every trade created so far.
func (m *Manager) Schedule() *trade.Schedule { return m.schedule }

// RuleSets returns the configured rule sets.
func (m *Manager) RuleSets() []*strategy.RuleSet { return m.sets }

// Step runs one simulated day: live trades are checked for exits
// first, then open rules are evaluated for new trades. A trade closed
// today is never reopened today, and each live trade closes at most
// once per step.
func (m *Manager) Step(date time.Time, mkt market.Provider, acct *account.Account) error {
	if mkt == nil || acct == nil {
		return fmt.Errorf("step %s: market and account are required", calendar.Format(date))
	}
	date = calendar.Truncate(date)

	if err := m.manageOpen(date, mkt, acct); err != nil {
		return fmt.Errorf("step %s: %w", calendar.Format(date), err)
	}
	if err := m.evaluateNew(date, mkt, acct); err != nil {
		return fmt.Errorf("step %s: %w", calendar.Format(date), err)
	}
	return nil
}

func (m *Manager) manageOpen(date time.Time, mkt market.Provider, acct *account.Account) error {
	for _, t := range m.schedule.Live() {
		set, ok := strategy.Find(m.sets, t.OpeningRule())
		if !ok {
			return fmt.Errorf("trade %s: no rule set owns opening rule %q", t.ID, t.OpeningRule())
		}

		signal, err := m.closeSignal(set, date, mkt, t)
		if err != nil {
			return fmt.Errorf("trade %s: %w", t.ID, err)
		}
		if signal == nil {
			continue
		}
		if err := m.closeTrade(date, mkt, acct, t, signal); err != nil {
			return err
		}
	}
	return nil
}

// closeSignal returns the first exit rule that fires for t, or nil.
func (m *Manager) closeSignal(set *strategy.RuleSet, date time.Time, mkt market.Provider, t *trade.Trade) (*rules.Rule, error) {
	ctx := rules.Context{Date: date, Market: mkt, Trade: t, Schedule: m.schedule}
	for _, r := range set.ClosingRules() {
		ok, err := r.Evaluate(ctx)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name(), err)
		}
		if ok {
			return r, nil
		}
	}
	return nil, nil
}

func (m *Manager) closeTrade(date time.Time, mkt market.Provider, acct *account.Account, t *trade.Trade, signal *rules.Rule) error {
	spot, err := mkt.Get(market.Query{
		Variable:   market.Spot,
		AssetClass: t.AssetClass,
		Underlying: t.Underlying,
		Date:       date,
	})
	if err != nil {
		return fmt.Errorf("close trade %s: %w", t.ID, err)
	}
	if err := t.Close(date, spot, signal.Action(), signal.ID()); err != nil {
		return err
	}
	if err := acct.CloseTrade(t); err != nil {
		return err
	}

	rec := journal.FromTrade(t)
	if err := m.journal.RecordTrade(rec); err != nil {
		return fmt.Errorf("journal trade %s: %w", t.ID, err)
	}
	m.log.WithFields(logrus.Fields{
		"date":        calendar.Format(date),
		"trade_id":    t.ID,
		"underlying":  t.Underlying,
		"reason":      signal.Action(),
		"rule":        signal.Name(),
		"close_price": spot,
		"realized_pl": rec.RealizedPL,
	}).Info("trade closed")
	return nil
}

// evaluateNew runs every open rule of every set against the first leg
// of each execution. Each rule that fires executes the whole execution.
func (m *Manager) evaluateNew(date time.Time, mkt market.Provider, acct *account.Account) error {
	for _, set := range m.sets {
		for _, exec := range set.Executions {
			for _, signal := range set.Open {
				ctx := rules.Context{Date: date, Market: mkt, Trade: exec.Template(), Schedule: m.schedule}
				ok, err := signal.Evaluate(ctx)
				if err != nil {
					return fmt.Errorf("rule set %s: rule %s: %w", set.Name, signal.Name(), err)
				}
				if !ok {
					continue
				}

				opened, err := exec.Execute(signal, mkt, date, acct)
				if err != nil {
					return fmt.Errorf("rule set %s: execute %s: %w", set.Name, signal.Name(), err)
				}
				m.schedule.Add(opened...)
				if len(opened) > 0 {
					m.log.WithFields(logrus.Fields{
						"date":     calendar.Format(date),
						"rule_set": set.Name,
						"rule":     signal.Name(),
						"legs":     len(opened),
						"cash":     acct.CashBalance(),
					}).Info("trades opened")
				}
			}
		}
	}
	return nil
}
