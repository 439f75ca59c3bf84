// Package execution turns a triggered rule into priced trade legs:
// strike resolution, the bisection strike solver, notional sizing,
// contract rounding and the ledger debit.
package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

// Mode selects how legs are executed.
type Mode string

const (
	Buy    Mode = "Buy"
	Sell   Mode = "Sell"
	Spread Mode = "Spread"
)

// Distribution says how notional is spread across legs. It is carried
// as configuration; legs size themselves from their own notional rule.
type Distribution string

const (
	Equal        Distribution = "equal"
	Proportional Distribution = "proportional"
)

// SpreadTolerance is how far a spread's realised premium may miss its
// target before the whole batch is discarded.
const SpreadTolerance = 0.01

// Cost is the running premium of one execution. It lives for a single
// Execute call.
type Cost struct {
	Current float64
	Target  *float64
}

// Rule holds the leg templates of one execution. It is not mutated by
// Execute, so it is safe to share.
type Rule struct {
	mode         Mode
	legs         []*trade.Trade
	targetCost   *float64
	distribution Distribution
	log          *logrus.Entry
}

// Option configures a Rule.
type Option func(*Rule)

// WithTargetCost sets the premium a spread must realise.
func WithTargetCost(x float64) Option {
	return func(r *Rule) { r.targetCost = &x }
}

// WithDistribution sets the notional distribution.
func WithDistribution(d Distribution) Option {
	return func(r *Rule) { r.distribution = d }
}

// WithLogger attaches a logger.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Rule) { r.log = l }
}

// NewRule validates and returns an execution rule. Legs are cloned so
// the caller's templates stay untouched.
func NewRule(mode Mode, legs []*trade.Trade, opts ...Option) (*Rule, error) {
	switch mode {
	case Buy, Sell, Spread:
	default:
		return nil, fmt.Errorf("%w: unknown execution mode %q", rules.ErrInvalidConfig, mode)
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: execution rule has no trades", rules.ErrInvalidConfig)
	}

	r := &Rule{mode: mode, distribution: Equal}
	for _, leg := range legs {
		if leg == nil {
			return nil, fmt.Errorf("%w: nil trade template", rules.ErrInvalidConfig)
		}
		r.legs = append(r.legs, leg.Clone())
	}
	for _, opt := range opts {
		opt(r)
	}
	switch r.distribution {
	case Equal, Proportional:
	default:
		return nil, fmt.Errorf("%w: unknown notional distribution %q", rules.ErrInvalidConfig, r.distribution)
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	return r, nil
}

func (r *Rule) Mode() Mode { return r.mode }
func (r *Rule) Distribution() Distribution { return r.distribution }

// TargetCost returns the configured spread target, if any.
func (r *Rule) TargetCost() (float64, bool) {
	if r.targetCost == nil {
		return 0, false
	}
	return *r.targetCost, true
}

// Legs returns the templates. Callers must not mutate them.
func (r *Rule) Legs() []*trade.Trade { return r.legs }

// Template is the first leg; it stands in for the whole execution when
// open rules are evaluated.
func (r *Rule) Template() *trade.Trade { return r.legs[0] }

type pricer func(mkt market.Provider, t *trade.Trade, date time.Time, cash float64, cost *Cost) error

var pricers = map[trade.InstrumentType]pricer{
	trade.CallOption:   priceOption,
	trade.PutOption:    priceOption,
	trade.TreasuryBill: priceBill,
}

// Execute prices every leg for date and debits acct. All legs are
// priced before any debit, so a spread that misses its target leaves
// the account untouched and returns no trades.
func (r *Rule) Execute(trigger *rules.Rule, mkt market.Provider, date time.Time, acct *account.Account) ([]*trade.Trade, error) {
	if trigger == nil {
		return nil, fmt.Errorf("%w: execute without a triggering rule", rules.ErrInvalidConfig)
	}
	if mkt == nil || acct == nil {
		return nil, fmt.Errorf("execute: market and account are required")
	}

	cost := &Cost{Target: r.targetCost}
	cash := acct.CashBalance()
	out := make([]*trade.Trade, 0, len(r.legs))

	for _, tmpl := range r.legs {
		leg, err := r.price(tmpl, trigger, mkt, date, cash, cost)
		if err != nil {
			return nil, err
		}
		cash -= leg.NotionalAmount
		if r.mode == Spread {
			cost.Current += leg.Premium()
		}
		out = append(out, leg)
	}

	if r.mode == Spread && cost.Target != nil && math.Abs(cost.Current-*cost.Target) >= SpreadTolerance {
		r.log.WithFields(logrus.Fields{
			"date":    date.Format("2006-01-02"),
			"rule_id": trigger.ID(),
			"premium": cost.Current,
			"target":  *cost.Target,
		}).Debug("spread discarded: premium missed target")
		return nil, nil
	}

	for _, leg := range out {
		acct.OpenTrade(leg)
		r.log.WithFields(logrus.Fields{
			"trade_id":   leg.ID,
			"underlying": leg.Underlying,
			"instrument": leg.Type(),
			"contracts":  leg.Contracts,
			"notional":   leg.NotionalAmount,
		}).Debug("trade opened")
	}
	return out, nil
}

func (r *Rule) price(tmpl *trade.Trade, trigger *rules.Rule, mkt market.Provider, date time.Time, cash float64, cost *Cost) (*trade.Trade, error) {
	leg := tmpl.Clone()
	leg.AssignID()
	leg.TradeDate = date

	p, ok := pricers[leg.Type()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInstrument, leg.Type())
	}
	if err := p(mkt, leg, date, cash, cost); err != nil {
		return nil, fmt.Errorf("price %s %s: %w", leg.Underlying, leg.Type(), err)
	}
	if leg.OpenPrice <= 0 {
		return nil, fmt.Errorf("price %s %s: open price %g must be > 0", leg.Underlying, leg.Type(), leg.OpenPrice)
	}

	leg.Contracts = int(math.Floor(leg.NotionalAmount / leg.OpenPrice))
	leg.NotionalAmount = float64(leg.Contracts) * leg.OpenPrice
	leg.MarkOpen(date, trigger.ID())
	return leg, nil
}

func priceOption(mkt market.Provider, t *trade.Trade, date time.Time, cash float64, cost *Cost) error {
	opt := t.Instrument.(*trade.Option)

	expiry, err := mkt.NextExpiry(t.AssetClass, t.Underlying, date)
	if err != nil {
		return err
	}
	t.ValueDate = expiry

	strike, err := ResolveStrike(mkt, t, date, cost)
	if err != nil {
		return err
	}
	opt.Strike = &strike

	price, err := optionPrice(mkt, t, date, strike)
	if err != nil {
		return err
	}
	opt.Premium = price
	if t.Direction == trade.Buy {
		opt.Premium = -price
	}

	if t.NotionalAmount, err = Notional(t.NotionalRule, cash); err != nil {
		return err
	}
	t.OpenPrice, err = spot(mkt, t, date)
	return err
}

// priceBill takes the yield at the first maturity of the day's curve.
func priceBill(mkt market.Provider, t *trade.Trade, date time.Time, cash float64, _ *Cost) error {
	bill := t.Instrument.(*trade.Bill)

	curve, err := mkt.YieldCurve(t.AssetClass, t.Underlying, date)
	if err != nil {
		return err
	}
	if len(curve.Yields) == 0 {
		return fmt.Errorf("%w: empty yield curve for %s on %s", market.ErrNotFound, t.Underlying, date.Format("2006-01-02"))
	}
	rate := curve.Yields[0]
	bill.InterestRate = &rate

	if t.NotionalAmount, err = Notional(t.NotionalRule, cash); err != nil {
		return err
	}
	t.OpenPrice, err = spot(mkt, t, date)
	return err
}
