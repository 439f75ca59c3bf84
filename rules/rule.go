// Package rules is the small rule language strategies are written in:
// comparison fields, conditions over two fields, and rules that combine
// conditions under a logic operator.
package rules

import (
	"fmt"

	"github.com/rustyeddy/rulesim/internal/id"
	"github.com/rustyeddy/rulesim/trade"
)

// Logic combines a rule's conditions.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
	Not Logic = "NOT"
	Xor Logic = "XOR"
)

// Rule is an action tag plus conditions under a logic operator. Rules
// are immutable and shared across every evaluation of a run.
type Rule struct {
	id         string
	name       string
	action     trade.Action
	logic      Logic
	conditions []Condition
}

// NewRule validates arity and returns a rule with a fresh ID.
func NewRule(name string, action trade.Action, logic Logic, conditions ...Condition) (*Rule, error) {
	switch action {
	case trade.Open, trade.Close, trade.StopLoss, trade.TakeProfit:
	default:
		return nil, fmt.Errorf("%w: unknown rule action %q", ErrInvalidConfig, action)
	}
	r := &Rule{
		id:         id.Prefixed("rule"),
		name:       name,
		action:     action,
		logic:      logic,
		conditions: append([]Condition(nil), conditions...),
	}
	if err := r.checkArity(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rule) ID() string { return r.id }
func (r *Rule) Name() string { return r.name }
func (r *Rule) Action() trade.Action { return r.action }
func (r *Rule) Logic() Logic { return r.logic }
func (r *Rule) Conditions() []Condition { return r.conditions }

func (r *Rule) checkArity() error {
	switch r.logic {
	case And, Or:
	case Not:
		if len(r.conditions) != 1 {
			return fmt.Errorf("%w: NOT logic requires exactly one condition, rule %q has %d", ErrInvalidConfig, r.name, len(r.conditions))
		}
	case Xor:
		if len(r.conditions) != 2 {
			return fmt.Errorf("%w: XOR logic requires exactly two conditions, rule %q has %d", ErrInvalidConfig, r.name, len(r.conditions))
		}
	default:
		return fmt.Errorf("%w: unknown logic %q", ErrInvalidConfig, r.logic)
	}
	return nil
}

// Evaluate combines the conditions. AND and OR short-circuit.
func (r *Rule) Evaluate(ctx Context) (bool, error) {
	if err := r.checkArity(); err != nil {
		return false, err
	}

	switch r.logic {
	case And:
		for _, c := range r.conditions {
			ok, err := c.Evaluate(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, c := range r.conditions {
			ok, err := c.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := r.conditions[0].Evaluate(ctx)
		return !ok && err == nil, err
	case Xor:
		a, err := r.conditions[0].Evaluate(ctx)
		if err != nil {
			return false, err
		}
		b, err := r.conditions[1].Evaluate(ctx)
		if err != nil {
			return false, err
		}
		return a != b, nil
	}
	return false, fmt.Errorf("%w: unknown logic %q", ErrInvalidConfig, r.logic)
}

func (r *Rule) String() string {
	if r.name != "" {
		return fmt.Sprintf("%s(%s %s)", r.name, r.action, r.logic)
	}
	return fmt.Sprintf("%s(%s %s)", r.id, r.action, r.logic)
}
