package config

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/execution"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/risk"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/strategy"
	"github.com/rustyeddy/rulesim/stream"
	"github.com/rustyeddy/rulesim/trade"
)

// Setup is everything a run needs, built from a Config.
type Setup struct {
	Account  *account.Account
	Market   *market.Snapshot
	Dates    []time.Time
	RuleSets []*strategy.RuleSet
	Streams  *stream.Manager // nil when not configured
	Risk     *risk.Policy    // nil when not configured
	RiskFree float64
}

// Build validates c and constructs the core objects. logger may be nil.
func (c *Config) Build(logger *logrus.Logger) (*Setup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	start, _ := calendar.Parse(c.Market.Start)

	acct, err := account.New(c.Account.Currency, c.Account.Balance)
	if err != nil {
		return nil, err
	}

	snap, dates, err := c.Market.build(start)
	if err != nil {
		return nil, err
	}

	s := &Setup{
		Account:  acct,
		Market:   snap,
		Dates:    dates,
		RiskFree: c.Output.RiskFreeRate,
	}

	execLog := logging.Component(logger, "execution")
	for i, rc := range c.RuleSets {
		set, err := rc.build(execLog)
		if err != nil {
			return nil, fmt.Errorf("rule_sets[%d]: %w", i, err)
		}
		s.RuleSets = append(s.RuleSets, set)
	}

	if c.Streams != nil {
		streamStart := start
		if c.Streams.Start != "" {
			streamStart, _ = calendar.Parse(c.Streams.Start)
		}
		templates, err := buildTrades(c.Streams.Trades)
		if err != nil {
			return nil, fmt.Errorf("streams: %w", err)
		}
		s.Streams, err = stream.NewManager(stream.Config{
			NumStreams:       c.Streams.NumStreams,
			RollInterval:     stream.RollInterval(strings.ToLower(c.Streams.RollInterval)),
			ExpirationMonths: c.Streams.ExpirationMonths,
			Start:            streamStart,
		}, templates, logging.Component(logger, "stream"))
		if err != nil {
			return nil, fmt.Errorf("streams: %w", err)
		}
	}

	if c.Risk != nil {
		s.Risk, err = risk.NewPolicy(c.Risk.MaxPositionPct, c.Risk.PortfolioLimitPct)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// build generates every underlying from one seeded source and returns
// the union of their dates.
func (m MarketConfig) build(start time.Time) (*market.Snapshot, []time.Time, error) {
	rng := rand.New(rand.NewSource(m.Seed))
	snap := market.NewSnapshot()
	seen := make(map[time.Time]bool)

	for _, u := range m.Underlyings {
		asset := market.AssetClass(u.AssetClass)
		series, err := market.Generate(rng, asset, u.Symbol, start, m.Days, market.GenOptions{
			StartPrice: u.StartPrice,
			DailyVol:   u.DailyVol,
			ImpliedVol: u.ImpliedVol,
		})
		if err != nil {
			return nil, nil, err
		}
		snap.Add(asset, u.Symbol, series)

		dates, err := snap.Dates(asset, u.Symbol)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range dates {
			seen[d] = true
		}
	}

	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return snap, out, nil
}

func (rc RuleSetConfig) build(log *logrus.Entry) (*strategy.RuleSet, error) {
	var rs []*rules.Rule
	for _, r := range rc.Rules {
		rule, err := r.build()
		if err != nil {
			return nil, err
		}
		rs = append(rs, rule)
	}

	var execs []*execution.Rule
	for i, ec := range rc.Executions {
		e, err := ec.build(log)
		if err != nil {
			return nil, fmt.Errorf("executions[%d]: %w", i, err)
		}
		execs = append(execs, e)
	}
	return strategy.NewRuleSet(rc.Name, rs, execs)
}

func (r RuleConfig) build() (*rules.Rule, error) {
	var conds []rules.Condition
	for i, cc := range r.Conditions {
		left, err := cc.Left.build()
		if err != nil {
			return nil, fmt.Errorf("rule %q: conditions[%d].left: %w", r.Name, i, err)
		}
		right, err := cc.Right.build()
		if err != nil {
			return nil, fmt.Errorf("rule %q: conditions[%d].right: %w", r.Name, i, err)
		}
		cond, err := rules.NewCondition(left, right, rules.Operator(strings.ToLower(cc.Op)))
		if err != nil {
			return nil, fmt.Errorf("rule %q: conditions[%d]: %w", r.Name, i, err)
		}
		conds = append(conds, cond)
	}
	return rules.NewRule(r.Name, trade.Action(strings.ToLower(r.Action)), rules.Logic(strings.ToUpper(r.Logic)), conds...)
}

func (f FieldConfig) build() (rules.Comparison, error) {
	typ := rules.FieldType(strings.ToLower(f.Type))
	if typ == "" {
		typ = rules.TypeValue
	}

	var field rules.Field
	switch rules.FieldKind(strings.ToLower(f.Source)) {
	case rules.FieldTrade:
		if f.Name == "" {
			return rules.Comparison{}, fmt.Errorf("%w: trade field needs a name", rules.ErrInvalidConfig)
		}
		field = rules.TradeField{Name: f.Name, FieldType: typ}
	case rules.FieldMarket:
		field = rules.MarketField{
			Variable:   market.Variable(f.Variable),
			AssetClass: market.AssetClass(f.AssetClass),
			Underlying: f.Underlying,
			FieldType:  typ,
		}
	case rules.FieldDate:
		field = rules.DateField{Name: rules.DateFieldName(strings.ToLower(f.Name))}
	case rules.FieldLiteral:
		v, err := literal(f.Value)
		if err != nil {
			return rules.Comparison{}, err
		}
		field = rules.LiteralField{Value: v}
	case rules.FieldPortfolio:
		field = rules.PortfolioField{Name: rules.PortfolioFieldName(strings.ToLower(f.Name))}
	default:
		return rules.Comparison{}, fmt.Errorf("%w: unknown field source %q", rules.ErrInvalidConfig, f.Source)
	}

	var off *rules.Offset
	if f.Offset != nil {
		off = &rules.Offset{Unit: calendar.Unit(strings.ToLower(f.Offset.Unit)), N: f.Offset.N}
	}
	return rules.NewComparison(field, off)
}

// literal converts a decoded YAML/JSON scalar or list. Strings that
// parse as YYYY-MM-DD become dates.
func literal(x any) (rules.Value, error) {
	switch v := x.(type) {
	case bool:
		return rules.Bool(v), nil
	case int:
		return rules.Number(float64(v)), nil
	case int64:
		return rules.Number(float64(v)), nil
	case float64:
		return rules.Number(v), nil
	case time.Time:
		return rules.Date(v), nil
	case string:
		if d, err := calendar.Parse(v); err == nil {
			return rules.Date(d), nil
		}
		return rules.String(v), nil
	case []any:
		items := make([]rules.Value, 0, len(v))
		for _, item := range v {
			iv, err := literal(item)
			if err != nil {
				return rules.Value{}, err
			}
			items = append(items, iv)
		}
		return rules.List(items...), nil
	case nil:
		return rules.Value{}, fmt.Errorf("%w: value field needs a value", rules.ErrInvalidConfig)
	}
	return rules.Value{}, fmt.Errorf("%w: unsupported literal %T", rules.ErrInvalidConfig, x)
}

func (ec ExecutionConfig) build(log *logrus.Entry) (*execution.Rule, error) {
	legs, err := buildTrades(ec.Trades)
	if err != nil {
		return nil, err
	}
	opts := []execution.Option{execution.WithLogger(log)}
	if ec.TargetCost != nil {
		opts = append(opts, execution.WithTargetCost(*ec.TargetCost))
	}
	if ec.Distribution != "" {
		opts = append(opts, execution.WithDistribution(execution.Distribution(strings.ToLower(ec.Distribution))))
	}
	return execution.NewRule(execution.Mode(ec.Mode), legs, opts...)
}

func buildTrades(tcs []TradeConfig) ([]*trade.Trade, error) {
	out := make([]*trade.Trade, 0, len(tcs))
	for i, tc := range tcs {
		t, err := tc.build()
		if err != nil {
			return nil, fmt.Errorf("trades[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (tc TradeConfig) build() (*trade.Trade, error) {
	if tc.Underlying == "" {
		return nil, fmt.Errorf("%w: trade underlying is required", rules.ErrInvalidConfig)
	}
	asset := market.AssetClass(tc.AssetClass)
	if !asset.Valid() {
		return nil, fmt.Errorf("%w: unknown asset class %q", rules.ErrInvalidConfig, tc.AssetClass)
	}

	dir := trade.Direction(tc.Direction)
	if dir != trade.Buy && dir != trade.Sell {
		return nil, fmt.Errorf("%w: direction must be Buy or Sell, got %q", rules.ErrInvalidConfig, tc.Direction)
	}

	calc := trade.StrikeCalculation(strings.ToLower(tc.StrikeCalculation))
	if calc == "" {
		calc = trade.Absolute
	}

	var inst trade.Instrument
	switch trade.InstrumentType(tc.Instrument) {
	case trade.CallOption:
		inst = trade.NewCall(tc.Strike, calc)
	case trade.PutOption:
		inst = trade.NewPut(tc.Strike, calc)
	case trade.TreasuryBill:
		inst = &trade.Bill{InterestRate: tc.InterestRate}
	case trade.Future:
		inst = &trade.FutureContract{}
	default:
		return nil, fmt.Errorf("%w: unknown instrument %q", rules.ErrInvalidConfig, tc.Instrument)
	}

	notional := trade.NotionalRule{
		Type:  trade.NotionalType(strings.ToLower(tc.Notional.Type)),
		Value: tc.Notional.Value,
	}
	switch notional.Type {
	case trade.Fixed, trade.PercentageOfAccount, trade.DynamicFormula:
	default:
		return nil, fmt.Errorf("%w: unknown notional type %q", rules.ErrInvalidConfig, tc.Notional.Type)
	}
	if notional.Type == trade.PercentageOfAccount && notional.Value <= 0 {
		return nil, fmt.Errorf("%w: percentage notional must be positive, got %g", rules.ErrInvalidConfig, notional.Value)
	}

	return trade.New(tc.Underlying, asset, dir, inst, notional), nil
}
