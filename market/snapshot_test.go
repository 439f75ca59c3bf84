package market

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/rulesim/calendar"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	d1 := calendar.Date(2024, 1, 2)
	d2 := calendar.Date(2024, 1, 3)
	m1 := calendar.Date(2024, 1, 31)
	m2 := calendar.Date(2024, 2, 29)

	snap := NewSnapshot()
	snap.Add(EQ, "SPX", Series{
		Symbol: "SPX",
		Spot: []SpotPoint{
			{Date: d1, Price: 100},
			{Date: d1, Price: 999}, // duplicate date; first wins
			{Date: d2, Price: 101},
		},
		Futures: []FuturePoint{{Date: d1, Delivery: d1.AddDate(0, 0, 90), Price: 102}},
		Surfaces: []Surface{{
			Date: d1,
			Points: []SurfacePoint{
				{Strike: 110, Maturity: m1, CallPrice: 1, PutPrice: 11, CallVol: 0.21, PutVol: 0.31},
				{Strike: 100, Maturity: m1, CallPrice: 5, PutPrice: 5, CallVol: 0.20, PutVol: 0.30},
				{Strike: 90, Maturity: m1, CallPrice: 11, PutPrice: 1, CallVol: 0.22, PutVol: 0.32},
				{Strike: 100, Maturity: m2, CallPrice: 7, PutPrice: 7, CallVol: 0.25, PutVol: 0.35},
			},
		}},
	})
	snap.Add(FI, "US10Y", Series{
		Symbol: "US10Y",
		Curves: []YieldCurve{{
			Date:       d1,
			Maturities: []time.Time{d1.AddDate(0, 0, 30), d1.AddDate(1, 0, 0)},
			Yields:     []float64{0.02, 0.04},
		}},
	})
	return snap
}

func TestSnapshotGet(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	d1 := calendar.Date(2024, 1, 2)
	m1 := calendar.Date(2024, 1, 31)

	tests := []struct {
		name string
		q    Query
		want float64
	}{
		{"spot first match", Query{Variable: Spot, AssetClass: EQ, Underlying: "SPX", Date: d1}, 100},
		{"spot second date", Query{Variable: Spot, AssetClass: EQ, Underlying: "SPX", Date: calendar.Date(2024, 1, 3)}, 101},
		{"future", Query{Variable: Future, AssetClass: EQ, Underlying: "SPX", Date: d1}, 102},
		{"call at node", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: m1, Strike: 100, OptionType: Call}, 5},
		{"call between nodes", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: m1, Strike: 105, OptionType: Call}, 5},
		{"put above top node", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: m1, Strike: 120, OptionType: Put}, 11},
		{"put vol", Query{Variable: Vol, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: m1, Strike: 95, OptionType: Put}, 0.32},
		{"call other maturity", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: calendar.Date(2024, 2, 29), Strike: 100, OptionType: Call}, 7},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := snap.Get(tt.q)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestSnapshotGetNotFound(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	d1 := calendar.Date(2024, 1, 2)

	tests := []struct {
		name string
		q    Query
	}{
		{"unknown underlying", Query{Variable: Spot, AssetClass: EQ, Underlying: "NDX", Date: d1}},
		{"missing date", Query{Variable: Spot, AssetClass: EQ, Underlying: "SPX", Date: calendar.Date(2025, 1, 1)}},
		{"strike below surface", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: calendar.Date(2024, 1, 31), Strike: 50, OptionType: Call}},
		{"unknown maturity", Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: d1, Maturity: calendar.Date(2024, 3, 29), Strike: 100, OptionType: Call}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := snap.Get(tt.q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestSnapshotNextExpiryAndCurve(t *testing.T) {
	t.Parallel()

	snap := testSnapshot(t)
	d1 := calendar.Date(2024, 1, 2)

	exp, err := snap.NextExpiry(EQ, "SPX", d1)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, 1, 31), exp)

	_, err = snap.NextExpiry(EQ, "SPX", calendar.Date(2024, 1, 3))
	assert.ErrorIs(t, err, ErrNotFound)

	yc, err := snap.YieldCurve(FI, "US10Y", d1)
	require.NoError(t, err)
	require.Len(t, yc.Yields, 2)
	assert.InDelta(t, 0.02, yc.Yields[0], 1e-12)

	_, err = snap.YieldCurve(FI, "US10Y", calendar.Date(2024, 1, 3))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotDates(t *testing.T) {
	t.Parallel()

	dates, err := testSnapshot(t).Dates(EQ, "SPX")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{calendar.Date(2024, 1, 2), calendar.Date(2024, 1, 3)}, dates)
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	start := calendar.Date(2024, 1, 1)
	a, err := Generate(rand.New(rand.NewSource(7)), EQ, "SPX", start, 30, GenOptions{})
	require.NoError(t, err)
	b, err := Generate(rand.New(rand.NewSource(7)), EQ, "SPX", start, 30, GenOptions{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Spot, 30)
	assert.Len(t, a.Surfaces, 30)
	assert.Empty(t, a.Curves)
	assert.InDelta(t, 550, a.Spot[0].Price, 1e-9)
}

func TestGenerateSurfaceIsQueryable(t *testing.T) {
	t.Parallel()

	start := calendar.Date(2024, 1, 1)
	series, err := Generate(rand.New(rand.NewSource(1)), EQ, "SPX", start, 5, GenOptions{StartPrice: 100})
	require.NoError(t, err)

	snap := NewSnapshot()
	snap.Add(EQ, "SPX", series)

	exp, err := snap.NextExpiry(EQ, "SPX", start)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, 1, 31), exp)

	// A strike just above a ladder node resolves to that node, not the
	// lowest strike on the surface.
	atm, err := snap.Get(Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: start, Maturity: exp, Strike: 100.01, OptionType: Call})
	require.NoError(t, err)
	deep, err := snap.Get(Query{Variable: OptionPrice, AssetClass: EQ, Underlying: "SPX", Date: start, Maturity: exp, Strike: 60, OptionType: Call})
	require.NoError(t, err)
	assert.Greater(t, atm, 0.0)
	assert.Greater(t, deep, atm)
}

func TestGenerateFixedIncome(t *testing.T) {
	t.Parallel()

	series, err := Generate(rand.New(rand.NewSource(3)), FI, "US10Y", calendar.Date(2024, 1, 1), 3, GenOptions{})
	require.NoError(t, err)
	require.Len(t, series.Curves, 3)
	assert.Empty(t, series.Surfaces)

	yc := series.Curves[0]
	require.Len(t, yc.Maturities, 9)
	assert.Equal(t, calendar.Date(2024, 1, 31), yc.Maturities[0])
}

func TestGenerateValidation(t *testing.T) {
	t.Parallel()

	_, err := Generate(nil, EQ, "SPX", time.Now(), 3, GenOptions{})
	assert.Error(t, err)
	_, err = Generate(rand.New(rand.NewSource(1)), AssetClass("XX"), "SPX", time.Now(), 3, GenOptions{})
	assert.Error(t, err)
	_, err = Generate(rand.New(rand.NewSource(1)), EQ, "SPX", time.Now(), 0, GenOptions{})
	assert.Error(t, err)
}
