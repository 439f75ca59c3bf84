package execution

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/rulesim/account"
	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

var day = calendar.Date(2024, 1, 2)

// fakeMarket prices options from a function of strike so tests control
// the solver's objective exactly.
type fakeMarket struct {
	spot   float64
	expiry time.Time
	price  func(strike float64, typ market.OptionType) float64
	curve  *market.YieldCurve
}

func (f *fakeMarket) Get(q market.Query) (float64, error) {
	if !q.Date.Equal(day) {
		return 0, market.ErrNotFound
	}
	switch q.Variable {
	case market.Spot:
		return f.spot, nil
	case market.OptionPrice:
		if f.price == nil || !q.Maturity.Equal(f.expiry) {
			return 0, market.ErrNotFound
		}
		return f.price(q.Strike, q.OptionType), nil
	}
	return 0, market.ErrNotFound
}

func (f *fakeMarket) NextExpiry(market.AssetClass, string, time.Time) (time.Time, error) {
	if f.expiry.IsZero() {
		return time.Time{}, market.ErrNotFound
	}
	return f.expiry, nil
}

func (f *fakeMarket) YieldCurve(market.AssetClass, string, time.Time) (market.YieldCurve, error) {
	if f.curve == nil {
		return market.YieldCurve{}, market.ErrNotFound
	}
	return *f.curve, nil
}

func newAccount(t *testing.T, cash float64) *account.Account {
	t.Helper()
	a, err := account.New("USD", cash)
	require.NoError(t, err)
	return a
}

func openRule(t *testing.T) *rules.Rule {
	t.Helper()
	r, err := rules.NewRule("always", trade.Open, rules.And)
	require.NoError(t, err)
	return r
}

func call(dir trade.Direction, strike *float64, calc trade.StrikeCalculation, notional trade.NotionalRule) *trade.Trade {
	return trade.New("SPX", market.EQ, dir, trade.NewCall(strike, calc), notional)
}

func fixed(v float64) trade.NotionalRule {
	return trade.NotionalRule{Type: trade.Fixed, Value: v}
}

func TestExecuteContractRounding(t *testing.T) {
	t.Parallel()

	mkt := &fakeMarket{
		spot:   47,
		expiry: calendar.Date(2024, 1, 31),
		price:  func(float64, market.OptionType) float64 { return 3 },
	}
	acct := newAccount(t, 10000)
	trigger := openRule(t)

	r, err := NewRule(Buy, []*trade.Trade{call(trade.Buy, trade.Float(50), trade.Absolute, fixed(1000))})
	require.NoError(t, err)

	got, err := r.Execute(trigger, mkt, day, acct)
	require.NoError(t, err)
	require.Len(t, got, 1)

	leg := got[0]
	assert.Equal(t, 21, leg.Contracts)
	assert.InDelta(t, 987, leg.NotionalAmount, 1e-9)
	assert.InDelta(t, 47, leg.OpenPrice, 1e-12)
	assert.InDelta(t, -3, leg.Premium(), 1e-12)
	assert.Equal(t, calendar.Date(2024, 1, 31), leg.ValueDate)
	assert.Equal(t, day, leg.TradeDate)
	assert.True(t, leg.IsOpen())
	assert.Equal(t, trigger.ID(), leg.OpeningRule())
	assert.NotEmpty(t, leg.ID)
	assert.InDelta(t, 10000-987, acct.CashBalance(), 1e-9)
}

func TestExecuteSpreadAllOrNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		callPrice float64
		putPrice  float64
		wantLegs  int
	}{
		{"premium off by 0.02", 1.02, 1.00, 0},
		{"premium off by 0.005", 1.005, 1.00, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mkt := &fakeMarket{
				spot:   100,
				expiry: calendar.Date(2024, 1, 31),
				price: func(_ float64, typ market.OptionType) float64 {
					if typ == market.Call {
						return tt.callPrice
					}
					return tt.putPrice
				},
			}
			acct := newAccount(t, 10000)

			legs := []*trade.Trade{
				call(trade.Sell, trade.Float(105), trade.Absolute, fixed(1000)),
				trade.New("SPX", market.EQ, trade.Buy, trade.NewPut(trade.Float(95), trade.Absolute), fixed(1000)),
			}
			r, err := NewRule(Spread, legs, WithTargetCost(0))
			require.NoError(t, err)

			got, err := r.Execute(openRule(t), mkt, day, acct)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLegs)

			if tt.wantLegs == 0 {
				assert.InDelta(t, 10000, acct.CashBalance(), 1e-9)
				return
			}
			assert.InDelta(t, 10000-2000, acct.CashBalance(), 1e-9)
		})
	}
}

func TestExecuteSpreadSolvesSecondStrike(t *testing.T) {
	t.Parallel()

	// Call price falls linearly with strike: 150 - k.
	mkt := &fakeMarket{
		spot:   100,
		expiry: calendar.Date(2024, 1, 31),
		price:  func(k float64, _ market.OptionType) float64 { return 150 - k },
	}
	acct := newAccount(t, 10000)

	legs := []*trade.Trade{
		call(trade.Sell, trade.Float(90), trade.Absolute, fixed(1000)),
		call(trade.Buy, nil, trade.Absolute, fixed(1000)),
	}
	r, err := NewRule(Spread, legs, WithTargetCost(0))
	require.NoError(t, err)

	got, err := r.Execute(openRule(t), mkt, day, acct)
	require.NoError(t, err)
	require.Len(t, got, 2)

	k, ok := got[1].Strike()
	require.True(t, ok)
	assert.InDelta(t, 90, k, StrikeTolerance)
	assert.InDelta(t, 0, got[0].Premium()+got[1].Premium(), SpreadTolerance)

	// Templates are untouched and a second run solves the same strike.
	_, ok = r.Legs()[1].Strike()
	assert.False(t, ok)
	again, err := r.Execute(openRule(t), mkt, day, newAccount(t, 10000))
	require.NoError(t, err)
	k2, _ := again[1].Strike()
	assert.InDelta(t, k, k2, 1e-12)
}

func TestExecutePercentageNotionalNetsEarlierLegs(t *testing.T) {
	t.Parallel()

	mkt := &fakeMarket{
		spot:   100,
		expiry: calendar.Date(2024, 1, 31),
		price:  func(float64, market.OptionType) float64 { return 2 },
	}
	acct := newAccount(t, 10000)
	half := trade.NotionalRule{Type: trade.PercentageOfAccount, Value: 0.5}

	r, err := NewRule(Buy, []*trade.Trade{
		call(trade.Buy, trade.Float(100), trade.Absolute, half),
		call(trade.Buy, trade.Float(100), trade.Absolute, half),
	})
	require.NoError(t, err)

	got, err := r.Execute(openRule(t), mkt, day, acct)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 50, got[0].Contracts)
	assert.Equal(t, 25, got[1].Contracts)
	assert.InDelta(t, 2500, acct.CashBalance(), 1e-9)
}

func TestExecuteTreasuryBillUsesFirstMaturity(t *testing.T) {
	t.Parallel()

	mkt := &fakeMarket{
		spot: 100,
		curve: &market.YieldCurve{
			Date:       day,
			Maturities: []time.Time{day.AddDate(0, 0, 30), day.AddDate(1, 0, 0)},
			Yields:     []float64{0.02, 0.04},
		},
	}
	acct := newAccount(t, 10000)
	bill := trade.New("US10Y", market.FI, trade.Buy, &trade.Bill{}, fixed(1050))

	r, err := NewRule(Buy, []*trade.Trade{bill})
	require.NoError(t, err)

	got, err := r.Execute(openRule(t), mkt, day, acct)
	require.NoError(t, err)
	require.Len(t, got, 1)

	rate, ok := got[0].InterestRate()
	require.True(t, ok)
	assert.InDelta(t, 0.02, rate, 1e-12)
	assert.Equal(t, 10, got[0].Contracts)
	assert.InDelta(t, 1000, got[0].NotionalAmount, 1e-9)
}

func TestExecuteErrors(t *testing.T) {
	t.Parallel()

	good := &fakeMarket{
		spot:   100,
		expiry: calendar.Date(2024, 1, 31),
		price:  func(float64, market.OptionType) float64 { return 1 },
	}

	tests := []struct {
		name   string
		mode   Mode
		legs   []*trade.Trade
		mkt    market.Provider
		opts   []Option
		target error
	}{
		{
			name:   "future unsupported",
			mode:   Buy,
			legs:   []*trade.Trade{trade.New("CL", market.CM, trade.Buy, &trade.FutureContract{}, fixed(100))},
			mkt:    good,
			target: ErrUnsupportedInstrument,
		},
		{
			name:   "dynamic formula",
			mode:   Buy,
			legs:   []*trade.Trade{call(trade.Buy, trade.Float(100), trade.Absolute, trade.NotionalRule{Type: trade.DynamicFormula})},
			mkt:    good,
			target: ErrNotImplemented,
		},
		{
			name:   "solved strike without target",
			mode:   Buy,
			legs:   []*trade.Trade{call(trade.Buy, nil, trade.Absolute, fixed(100))},
			mkt:    good,
			target: ErrNoTargetCost,
		},
		{
			name:   "bad strike calculation",
			mode:   Buy,
			legs:   []*trade.Trade{call(trade.Buy, trade.Float(5), trade.StrikeCalculation("gamma"), fixed(100))},
			mkt:    good,
			target: ErrUnsupportedStrike,
		},
		{
			name:   "no surface",
			mode:   Sell,
			legs:   []*trade.Trade{call(trade.Sell, trade.Float(100), trade.Absolute, fixed(100))},
			mkt:    &fakeMarket{spot: 100},
			target: market.ErrNotFound,
		},
		{
			name:   "no yield curve",
			mode:   Buy,
			legs:   []*trade.Trade{trade.New("US10Y", market.FI, trade.Buy, &trade.Bill{}, fixed(100))},
			mkt:    good,
			target: market.ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct := newAccount(t, 1000)
			r, err := NewRule(tt.mode, tt.legs, tt.opts...)
			require.NoError(t, err)

			got, err := r.Execute(openRule(t), tt.mkt, day, acct)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), err.Error())
			assert.Nil(t, got)
			assert.InDelta(t, 1000, acct.CashBalance(), 1e-9)
		})
	}
}

func TestExecuteConfigErrorsAreInvalidConfig(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrUnsupportedInstrument, ErrNotImplemented, ErrUnsupportedStrike, ErrNoTargetCost} {
		assert.ErrorIs(t, err, rules.ErrInvalidConfig)
	}

	_, err := NewRule(Mode("Hedge"), []*trade.Trade{call(trade.Buy, nil, trade.Absolute, fixed(1))})
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)
	_, err = NewRule(Buy, nil)
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)
	_, err = NewRule(Buy, []*trade.Trade{call(trade.Buy, nil, trade.Absolute, fixed(1))}, WithDistribution("random"))
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)
}

func TestResolveStrike(t *testing.T) {
	t.Parallel()

	mkt := &fakeMarket{spot: 100}

	tests := []struct {
		name string
		k    float64
		calc trade.StrikeCalculation
		want float64
	}{
		{"otm", 10, trade.PercentOTM, 90},
		{"itm", 10, trade.PercentITM, 110},
		{"atm", 10, trade.PercentATM, 100},
		{"delta neutral placeholder", 10, trade.DeltaNeutral, 100},
		{"absolute", 95, trade.Absolute, 95},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			leg := call(trade.Buy, trade.Float(tt.k), tt.calc, fixed(1))
			got, err := ResolveStrike(mkt, leg, day, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBisect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    func(float64) (float64, error)
		lo   float64
		hi   float64
		want float64
	}{
		{"linear", func(k float64) (float64, error) { return 100 - k, nil }, 50, 150, 100},
		{"off centre", func(k float64) (float64, error) { return 73.123 - k, nil }, 50, 150, 73.123},
		{"convex", func(k float64) (float64, error) { return (256 - k*k) / 16, nil }, 2, 30, 16},
		{"cubic", func(k float64) (float64, error) { return math.Pow(120-k, 3) + (120 - k), nil }, 50, 150, 120},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Bisect(tt.f, tt.lo, tt.hi, StrikeTolerance)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, StrikeTolerance)
		})
	}
}

func TestBisectFallsBackToMidpoint(t *testing.T) {
	t.Parallel()

	// No root in the bracket: every step raises the lower bound.
	got, err := Bisect(func(float64) (float64, error) { return 1, nil }, 50, 150, StrikeTolerance)
	require.NoError(t, err)
	assert.InDelta(t, 150, got, StrikeTolerance)
	assert.Less(t, got, 150.0)

	boom := errors.New("boom")
	_, err = Bisect(func(float64) (float64, error) { return 0, boom }, 50, 150, StrikeTolerance)
	assert.ErrorIs(t, err, boom)
}

func TestNotional(t *testing.T) {
	t.Parallel()

	v, err := Notional(fixed(1000), 5)
	require.NoError(t, err)
	assert.InDelta(t, 1000, v, 1e-12)

	v, err = Notional(trade.NotionalRule{Type: trade.PercentageOfAccount, Value: 0.1}, 5000)
	require.NoError(t, err)
	assert.InDelta(t, 500, v, 1e-12)

	_, err = Notional(trade.NotionalRule{Type: trade.DynamicFormula}, 5000)
	assert.ErrorIs(t, err, ErrNotImplemented)

	v, err = Notional(trade.NotionalRule{Type: trade.PercentageOfAccount, Value: 0.1}, -5000)
	require.NoError(t, err)
	assert.Zero(t, v, "negative cash sizes to nothing")
}

func TestNotionalRejectsNonPositivePercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
	}{
		{name: "zero", value: 0},
		{name: "negative", value: -0.25},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Notional(trade.NotionalRule{Type: trade.PercentageOfAccount, Value: tt.value}, 5000)
			require.Error(t, err)
			assert.ErrorIs(t, err, rules.ErrInvalidConfig)
			assert.Contains(t, err.Error(), "percentage notional must be positive")
		})
	}
}
