package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/trade"
)

type Violation struct {
	Code    string
	TradeID string
	Msg     string
}

// Resize is a contract change Evaluate wants made.
type Resize struct {
	Trade     *trade.Trade
	Contracts int
}

type Decision struct {
	Allowed    bool
	Violations []Violation
	Resizes    []Resize

	AccountValue float64
	LiveNotional float64
}

func (d *Decision) add(code string, t *trade.Trade, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, TradeID: t.ID, Msg: msg})
	d.Allowed = false
}

// Evaluate checks live trades against the policy without changing
// anything. Trades are visited in schedule order.
func Evaluate(p Policy, cash float64, live []*trade.Trade) Decision {
	d := Decision{Allowed: true}

	for _, t := range live {
		d.LiveNotional += t.NotionalAmount
	}
	d.AccountValue = cash + d.LiveNotional

	// Track sizes as they would be after earlier resizes.
	sizes := make(map[*trade.Trade]int, len(live))
	notional := func(t *trade.Trade) float64 { return float64(sizes[t]) * t.OpenPrice }
	for _, t := range live {
		sizes[t] = t.Contracts
	}

	if p.MaxPositionPct > 0 {
		limit := p.MaxPositionPct * d.AccountValue
		for _, t := range live {
			if notional(t) <= limit || t.OpenPrice <= 0 {
				continue
			}
			n := int(math.Floor(limit / t.OpenPrice))
			d.add("POSITION_TOO_LARGE", t,
				fmt.Sprintf("notional %.2f exceeds %.2f%% of account value %.2f",
					notional(t), 100*p.MaxPositionPct, d.AccountValue))
			sizes[t] = n
		}
	}

	if p.PortfolioLimitPct > 0 {
		limit := p.PortfolioLimitPct * d.AccountValue
		cum := 0.0
		for _, t := range live {
			if t.OpenPrice <= 0 {
				continue
			}
			if cum+notional(t) > limit {
				room := math.Max(limit-cum, 0)
				n := int(math.Floor(room / t.OpenPrice))
				d.add("PORTFOLIO_LIMIT", t,
					fmt.Sprintf("live notional %.2f exceeds %.2f%% of account value %.2f",
						cum+notional(t), 100*p.PortfolioLimitPct, d.AccountValue))
				sizes[t] = n
			}
			cum += notional(t)
		}
	}

	for _, t := range live {
		if sizes[t] != t.Contracts {
			d.Resizes = append(d.Resizes, Resize{Trade: t, Contracts: sizes[t]})
		}
	}
	return d
}

// Apply resizes oversized trades and releases the freed notional back
// to cash.
func (p *Policy) Apply(acct *account.Account, live []*trade.Trade) error {
	if acct == nil {
		return fmt.Errorf("risk: account is required")
	}
	d := Evaluate(*p, acct.CashBalance(), live)
	for _, r := range d.Resizes {
		acct.Release(r.Trade.Resize(r.Contracts))
	}
	return nil
}
