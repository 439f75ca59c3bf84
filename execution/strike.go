package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

// spot reads the underlying's spot on date.
func spot(mkt market.Provider, t *trade.Trade, date time.Time) (float64, error) {
	return mkt.Get(market.Query{
		Variable:   market.Spot,
		AssetClass: t.AssetClass,
		Underlying: t.Underlying,
		Date:       date,
	})
}

func optionPrice(mkt market.Provider, t *trade.Trade, date time.Time, strike float64) (float64, error) {
	return mkt.Get(market.Query{
		Variable:   market.OptionPrice,
		AssetClass: t.AssetClass,
		Underlying: t.Underlying,
		Date:       date,
		Maturity:   t.ValueDate,
		Strike:     strike,
		OptionType: market.OptionType(t.Type()),
	})
}

// ResolveStrike turns the configured strike into a traded strike. A nil
// strike is first solved for with DynamicStrike; the calculation mode
// is then applied to that base value.
func ResolveStrike(mkt market.Provider, t *trade.Trade, date time.Time, cost *Cost) (float64, error) {
	opt, ok := t.Instrument.(*trade.Option)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no strike", ErrUnsupportedInstrument, t.Type())
	}

	var base float64
	if opt.Strike != nil {
		base = *opt.Strike
	} else {
		k, err := DynamicStrike(mkt, t, date, cost)
		if err != nil {
			return 0, err
		}
		base = k
	}

	switch opt.StrikeCalc {
	case trade.PercentOTM:
		s, err := spot(mkt, t, date)
		if err != nil {
			return 0, err
		}
		return s * (1 - base/100), nil
	case trade.PercentITM:
		s, err := spot(mkt, t, date)
		if err != nil {
			return 0, err
		}
		return s * (1 + base/100), nil
	case trade.PercentATM:
		return spot(mkt, t, date)
	case trade.DeltaNeutral:
		return deltaNeutralStrike(mkt, t, date)
	case trade.Absolute:
		return base, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStrike, opt.StrikeCalc)
}

// deltaNeutralStrike is a placeholder policy that trades at the money.
func deltaNeutralStrike(mkt market.Provider, t *trade.Trade, date time.Time) (float64, error) {
	return spot(mkt, t, date)
}

// DynamicStrike searches [0.5, 1.5] x spot for the strike whose option
// price brings the running spread cost to its target.
func DynamicStrike(mkt market.Provider, t *trade.Trade, date time.Time, cost *Cost) (float64, error) {
	if cost == nil || cost.Target == nil {
		return 0, fmt.Errorf("%w: %s %s leg", ErrNoTargetCost, t.Underlying, t.Type())
	}
	remaining := *cost.Target - cost.Current

	s, err := spot(mkt, t, date)
	if err != nil {
		return 0, err
	}
	objective := func(strike float64) (float64, error) {
		p, err := optionPrice(mkt, t, date, strike)
		if err != nil {
			return 0, err
		}
		return p + remaining, nil
	}
	return Bisect(objective, s*lowerBracket, s*upperBracket, StrikeTolerance)
}

// Notional sizes a leg from its rule. cash is the balance available to
// the leg; a percentage of negative cash sizes to zero.
func Notional(rule trade.NotionalRule, cash float64) (float64, error) {
	switch rule.Type {
	case trade.Fixed:
		return rule.Value, nil
	case trade.PercentageOfAccount:
		if rule.Value <= 0 {
			return 0, fmt.Errorf("%w: percentage notional must be positive, got %g", rules.ErrInvalidConfig, rule.Value)
		}
		return math.Max(cash*rule.Value, 0), nil
	case trade.DynamicFormula:
		return 0, fmt.Errorf("%w: notional rule %q", ErrNotImplemented, rule.Type)
	}
	return 0, fmt.Errorf("%w: notional rule %q", ErrNotImplemented, rule.Type)
}
