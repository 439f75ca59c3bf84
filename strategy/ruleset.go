// Package strategy groups trade rules with the executions they drive.
package strategy

import (
	"fmt"

	"github.com/rustyeddy/rulesim/execution"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

// RuleSet is one rule-settings group: its rules partitioned by action
// and the executions its open rules trigger.
type RuleSet struct {
	Name       string
	Open       []*rules.Rule
	Close      []*rules.Rule
	StopLoss   []*rules.Rule
	TakeProfit []*rules.Rule
	Executions []*execution.Rule
}

// NewRuleSet partitions rs by action. A set with no open rule or no
// execution could never trade and is rejected.
func NewRuleSet(name string, rs []*rules.Rule, execs []*execution.Rule) (*RuleSet, error) {
	set := &RuleSet{Name: name}
	for _, r := range rs {
		if r == nil {
			return nil, fmt.Errorf("%w: rule set %q has a nil rule", rules.ErrInvalidConfig, name)
		}
		switch r.Action() {
		case trade.Open:
			set.Open = append(set.Open, r)
		case trade.Close:
			set.Close = append(set.Close, r)
		case trade.StopLoss:
			set.StopLoss = append(set.StopLoss, r)
		case trade.TakeProfit:
			set.TakeProfit = append(set.TakeProfit, r)
		}
	}
	if len(set.Open) == 0 {
		return nil, fmt.Errorf("%w: rule set %q has no open rules", rules.ErrInvalidConfig, name)
	}
	for _, e := range execs {
		if e == nil {
			return nil, fmt.Errorf("%w: rule set %q has a nil execution", rules.ErrInvalidConfig, name)
		}
	}
	if len(execs) == 0 {
		return nil, fmt.Errorf("%w: rule set %q has no executions", rules.ErrInvalidConfig, name)
	}
	set.Executions = append(set.Executions, execs...)
	return set, nil
}

// OwnsOpenRule reports whether ruleID is one of this set's open rules.
func (s *RuleSet) OwnsOpenRule(ruleID string) bool {
	for _, r := range s.Open {
		if r.ID() == ruleID {
			return true
		}
	}
	return false
}

// ClosingRules returns the exit rules in priority order: close, then
// stop-loss, then take-profit.
func (s *RuleSet) ClosingRules() []*rules.Rule {
	out := make([]*rules.Rule, 0, len(s.Close)+len(s.StopLoss)+len(s.TakeProfit))
	out = append(out, s.Close...)
	out = append(out, s.StopLoss...)
	return append(out, s.TakeProfit...)
}

// Find returns the first set owning the open rule ruleID.
func Find(sets []*RuleSet, ruleID string) (*RuleSet, bool) {
	for _, s := range sets {
		if s.OwnsOpenRule(ruleID) {
			return s, true
		}
	}
	return nil, false
}
