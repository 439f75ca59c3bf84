package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/rulesim/execution"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

func rule(t *testing.T, name string, action trade.Action) *rules.Rule {
	t.Helper()
	r, err := rules.NewRule(name, action, rules.And)
	require.NoError(t, err)
	return r
}

func exec(t *testing.T) *execution.Rule {
	t.Helper()
	leg := trade.New("SPX", market.EQ, trade.Buy, trade.NewCall(trade.Float(100), trade.Absolute), trade.NotionalRule{Type: trade.Fixed, Value: 100})
	e, err := execution.NewRule(execution.Buy, []*trade.Trade{leg})
	require.NoError(t, err)
	return e
}

func TestNewRuleSetPartitions(t *testing.T) {
	t.Parallel()

	open := rule(t, "open", trade.Open)
	cl := rule(t, "close", trade.Close)
	sl := rule(t, "stop", trade.StopLoss)
	tp := rule(t, "tp", trade.TakeProfit)

	set, err := NewRuleSet("spx", []*rules.Rule{tp, open, sl, cl}, []*execution.Rule{exec(t)})
	require.NoError(t, err)

	assert.Equal(t, []*rules.Rule{open}, set.Open)
	assert.Equal(t, []*rules.Rule{cl}, set.Close)
	assert.Equal(t, []*rules.Rule{sl}, set.StopLoss)
	assert.Equal(t, []*rules.Rule{tp}, set.TakeProfit)
	assert.Equal(t, []*rules.Rule{cl, sl, tp}, set.ClosingRules())

	assert.True(t, set.OwnsOpenRule(open.ID()))
	assert.False(t, set.OwnsOpenRule(cl.ID()))
}

func TestNewRuleSetErrors(t *testing.T) {
	t.Parallel()

	_, err := NewRuleSet("none", []*rules.Rule{rule(t, "c", trade.Close)}, []*execution.Rule{exec(t)})
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)

	_, err = NewRuleSet("noexec", []*rules.Rule{rule(t, "o", trade.Open)}, nil)
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)

	_, err = NewRuleSet("nil", []*rules.Rule{nil}, []*execution.Rule{exec(t)})
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)
}

func TestFind(t *testing.T) {
	t.Parallel()

	o1 := rule(t, "o1", trade.Open)
	o2 := rule(t, "o2", trade.Open)
	a, err := NewRuleSet("a", []*rules.Rule{o1}, []*execution.Rule{exec(t)})
	require.NoError(t, err)
	b, err := NewRuleSet("b", []*rules.Rule{o2}, []*execution.Rule{exec(t)})
	require.NoError(t, err)

	got, ok := Find([]*RuleSet{a, b}, o2.ID())
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = Find([]*RuleSet{a, b}, "missing")
	assert.False(t, ok)
}
