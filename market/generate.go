package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/rulesim/calendar"
)

// GenOptions tunes the synthetic generator. Zero fields take defaults.
type GenOptions struct {
	StartPrice float64 // default depends on the asset class
	DailyVol   float64 // default 0.01
	ImpliedVol float64 // centre of the implied vol band, default 0.25
}

var defaultStartPrice = map[AssetClass]float64{
	EQ: 550,
	CM: 80,
	FX: 1.10,
	CC: 30000,
	FI: 100,
}

// strike ladder as a fraction of spot, highest first so that a
// "strike at or below" lookup hits the nearest node.
var strikeLadder = func() []float64 {
	out := make([]float64, 0, 21)
	for i := 20; i >= 0; i-- {
		out = append(out, 0.5+float64(i)*0.05)
	}
	return out
}()

// Generate builds a synthetic daily series for symbol starting at start.
// Spot follows a log random walk; every date carries a futures quote 90
// days out. Option-bearing classes get a surface over the next four
// month-end maturities; FI gets a yield curve with T-bill tenors first.
// The output is fully determined by rng.
func Generate(rng *rand.Rand, asset AssetClass, symbol string, start time.Time, days int, opts GenOptions) (Series, error) {
	if rng == nil {
		return Series{}, fmt.Errorf("generate %s: rng is required", symbol)
	}
	if !asset.Valid() {
		return Series{}, fmt.Errorf("generate %s: unknown asset class %q", symbol, asset)
	}
	if days <= 0 {
		return Series{}, fmt.Errorf("generate %s: days must be > 0", symbol)
	}

	price := opts.StartPrice
	if price <= 0 {
		price = defaultStartPrice[asset]
	}
	dailyVol := opts.DailyVol
	if dailyVol <= 0 {
		dailyVol = 0.01
	}
	iv := opts.ImpliedVol
	if iv <= 0 {
		iv = 0.25
	}

	s := Series{Symbol: symbol}
	for i, d := range calendar.Range(start, days) {
		if i > 0 {
			price *= math.Exp(dailyVol * rng.NormFloat64())
		}
		spot := round(price, 4)
		s.Spot = append(s.Spot, SpotPoint{Date: d, Price: spot})
		s.Futures = append(s.Futures, FuturePoint{
			Date:     d,
			Delivery: d.AddDate(0, 0, 90),
			Price:    round(spot*(1+0.02*90/365), 4),
		})

		if asset == FI {
			s.Curves = append(s.Curves, yieldCurve(rng, d))
			continue
		}
		s.Surfaces = append(s.Surfaces, surface(rng, d, spot, iv))
	}
	return s, nil
}

func surface(rng *rand.Rand, date time.Time, spot, iv float64) Surface {
	out := Surface{Date: date}
	for m := 0; m < 4; m++ {
		maturity := calendar.EndOfMonth(calendar.AddMonths(date, m))
		tau := float64(calendar.DaysBetween(date, maturity)) / 365
		for _, k := range strikeLadder {
			strike := round(spot*k, 4)
			callVol := round(iv+(rng.Float64()-0.5)*0.1, 4)
			putVol := round(iv+(rng.Float64()-0.5)*0.1, 4)
			out.Points = append(out.Points, SurfacePoint{
				Strike:    strike,
				Maturity:  maturity,
				CallPrice: round(optionPrice(spot, strike, callVol, tau, true), 4),
				PutPrice:  round(optionPrice(spot, strike, putVol, tau, false), 4),
				CallVol:   callVol,
				PutVol:    putVol,
			})
		}
	}
	return out
}

// optionPrice is a normal-model approximation: intrinsic value plus a
// time value that decays with moneyness.
func optionPrice(spot, strike, vol, tau float64, call bool) float64 {
	intrinsic := spot - strike
	if !call {
		intrinsic = -intrinsic
	}
	sd := spot * vol * math.Sqrt(math.Max(tau, 1.0/365))
	d := (spot - strike) / sd
	if !call {
		d = -d
	}
	value := intrinsic*normCDF(d) + sd*normPDF(d)
	return math.Max(value, 0)
}

func normPDF(x float64) float64 { return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi) }
func normCDF(x float64) float64 { return 0.5 * math.Erfc(-x/math.Sqrt2) }

func yieldCurve(rng *rand.Rand, date time.Time) YieldCurve {
	yc := YieldCurve{Date: date}
	for _, days := range []int{30, 90, 180, 365} {
		yc.Maturities = append(yc.Maturities, date.AddDate(0, 0, days))
		yc.Yields = append(yc.Yields, round(0.005+rng.Float64()*0.025, 4))
	}
	for y := 1; y <= 5; y++ {
		yc.Maturities = append(yc.Maturities, date.AddDate(0, 0, 365*y))
		yc.Yields = append(yc.Yields, round(0.01+rng.Float64()*0.04, 4))
	}
	return yc
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
