// Package risk resizes live positions after each simulated day so no
// single trade, and no book as a whole, outgrows its share of account
// value.
package risk

import (
	"fmt"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/trade"
)

// Manager adjusts live trades after the day's trade management step.
type Manager interface {
	Apply(acct *account.Account, live []*trade.Trade) error
}

// Policy holds the sizing limits as fractions of account value (cash
// plus live notional). A zero limit disables that check.
type Policy struct {
	MaxPositionPct    float64 // e.g. 0.10
	PortfolioLimitPct float64 // e.g. 0.80
}

// NewPolicy validates the limits.
func NewPolicy(maxPositionPct, portfolioLimitPct float64) (*Policy, error) {
	p := &Policy{MaxPositionPct: maxPositionPct, PortfolioLimitPct: portfolioLimitPct}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Validate() error {
	if p.MaxPositionPct < 0 || p.MaxPositionPct > 1 {
		return fmt.Errorf("risk: max position pct must be in [0, 1], got %g", p.MaxPositionPct)
	}
	if p.PortfolioLimitPct < 0 || p.PortfolioLimitPct > 1 {
		return fmt.Errorf("risk: portfolio limit pct must be in [0, 1], got %g", p.PortfolioLimitPct)
	}
	return nil
}
